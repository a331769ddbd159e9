package actor

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// LocalProtocol 本地 Actor 地址使用的协议名
const LocalProtocol = "actuator"

// Address Actor 系统地址
// 格式: protocol://system 或 protocol://system@host:port
type Address struct {
	Protocol string
	System   string
	Host     string
	Port     int
}

// LocalAddress 创建本地系统地址
func LocalAddress(system string) Address {
	return Address{Protocol: LocalProtocol, System: system}
}

// HasLocalScope 是否为本地地址（无 host）
func (a Address) HasLocalScope() bool {
	return a.Host == ""
}

// String 返回地址字符串
func (a Address) String() string {
	var b strings.Builder
	b.WriteString(a.Protocol)
	b.WriteString("://")
	b.WriteString(a.System)
	if a.Host != "" {
		b.WriteByte('@')
		b.WriteString(a.Host)
		if a.Port > 0 {
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(a.Port))
		}
	}
	return b.String()
}

// ParseAddress 解析地址字符串
func ParseAddress(s string) (Address, error) {
	protocol, rest, ok := strings.Cut(s, "://")
	if !ok || protocol == "" || rest == "" {
		return Address{}, errors.Wrapf(ErrInvalidPath, "address %q", s)
	}
	system, hostPort, hasHost := strings.Cut(rest, "@")
	if system == "" {
		return Address{}, errors.Wrapf(ErrInvalidPath, "address %q has no system", s)
	}
	addr := Address{Protocol: protocol, System: system}
	if !hasHost {
		return addr, nil
	}
	host, port, hasPort := strings.Cut(hostPort, ":")
	if host == "" {
		return Address{}, errors.Wrapf(ErrInvalidPath, "address %q has empty host", s)
	}
	addr.Host = host
	if hasPort {
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p > 65535 {
			return Address{}, errors.Wrapf(ErrInvalidPath, "address %q has invalid port", s)
		}
		addr.Port = p
	}
	return addr, nil
}

// Path Actor 层级路径
// 不可变，可直接用 == 比较或作为 map 键
type Path struct {
	address  Address
	elements string // "" 表示根路径，否则形如 "/user/a/b"
}

// RootPath 返回地址对应的根路径
func RootPath(addr Address) Path {
	return Path{address: addr}
}

// Address 返回根地址
func (p Path) Address() Address { return p.address }

// IsRoot 是否为根路径
func (p Path) IsRoot() bool { return p.elements == "" }

// Child 返回子路径，name 需由调用方保证合法
func (p Path) Child(name string) Path {
	return Path{address: p.address, elements: p.elements + "/" + name}
}

// Parent 返回父路径，根路径的父路径是自身
func (p Path) Parent() Path {
	if p.IsRoot() {
		return p
	}
	i := strings.LastIndexByte(p.elements, '/')
	return Path{address: p.address, elements: p.elements[:i]}
}

// Name 返回最后一段名称，根路径返回 "/"
func (p Path) Name() string {
	if p.IsRoot() {
		return "/"
	}
	return p.elements[strings.LastIndexByte(p.elements, '/')+1:]
}

// Elements 返回各段名称
func (p Path) Elements() []string {
	if p.IsRoot() {
		return nil
	}
	return strings.Split(p.elements[1:], "/")
}

// Depth 返回路径深度，根路径为 0
func (p Path) Depth() int {
	if p.IsRoot() {
		return 0
	}
	return strings.Count(p.elements, "/")
}

// IsDescendantOf 判断是否位于 ancestor 之下（不含自身）
func (p Path) IsDescendantOf(ancestor Path) bool {
	if p.address != ancestor.address || p == ancestor {
		return false
	}
	if ancestor.IsRoot() {
		return true
	}
	return strings.HasPrefix(p.elements, ancestor.elements+"/")
}

// ToStringWithoutAddress 返回不含地址的路径
func (p Path) ToStringWithoutAddress() string {
	if p.IsRoot() {
		return "/"
	}
	return p.elements
}

// String 返回完整路径
func (p Path) String() string {
	return p.address.String() + p.ToStringWithoutAddress()
}

// ParsePath 解析完整路径，例如 "actuator://sys/user/a"
func ParsePath(s string) (Path, error) {
	i := strings.Index(s, "://")
	if i < 0 {
		return Path{}, errors.Wrapf(ErrInvalidPath, "path %q has no address", s)
	}
	slash := strings.IndexByte(s[i+3:], '/')
	if slash < 0 {
		addr, err := ParseAddress(s)
		if err != nil {
			return Path{}, err
		}
		return RootPath(addr), nil
	}
	addr, err := ParseAddress(s[:i+3+slash])
	if err != nil {
		return Path{}, err
	}
	return parseElements(RootPath(addr), s[i+3+slash:])
}

// parseElements 在 root 下解析形如 "/user/a" 的路径
func parseElements(root Path, s string) (Path, error) {
	if !strings.HasPrefix(s, "/") {
		return Path{}, errors.Wrapf(ErrInvalidPath, "path %q is not absolute", s)
	}
	p := root
	if s == "/" {
		return p, nil
	}
	for _, name := range strings.Split(s[1:], "/") {
		if err := validateElement(name); err != nil {
			return Path{}, errors.Wrapf(ErrInvalidPath, "path %q: %v", s, err)
		}
		p = p.Child(name)
	}
	return p, nil
}

const validSymbols = "-_.*$+:@&=,!~';"

// ValidateName 校验用户提供的 Actor 名称
// "$" 开头的名称保留给运行时生成
func ValidateName(name string) error {
	if strings.HasPrefix(name, "$") {
		return errors.Wrapf(ErrInvalidActorName, "%q: names starting with '$' are reserved", name)
	}
	return validateElement(name)
}

func validateElement(name string) error {
	if name == "" {
		return errors.Wrap(ErrInvalidActorName, "name must not be empty")
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte(validSymbols, c) >= 0:
		case c == '%' && i+2 < len(name) && isHex(name[i+1]) && isHex(name[i+2]):
			i += 2
		default:
			return errors.Wrapf(ErrInvalidActorName, "%q: illegal character at position %d", name, i)
		}
	}
	return nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
