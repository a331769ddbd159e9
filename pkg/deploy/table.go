package deploy

import (
	"cmp"
	"path"
	"slices"
	"strings"

	"go.uber.org/atomic"

	"github.com/lwmacct/251215-go-pkg-actuator/pkg/actor"
)

// Table 按路径模式查找部署，实现 actor.Deployer
// 精确路径优先，其次是最长的通配模式。整张表通过原子指针整体替换，
// 已创建的 Actor 不受替换影响。
type Table struct {
	current atomic.Pointer[tableSnapshot]
}

type tableSnapshot struct {
	exact map[string]actor.Deploy
	globs []globRule // 按模式长度降序
}

type globRule struct {
	pattern string
	deploy  actor.Deploy
}

// NewTable 根据配置创建部署表
func NewTable(cfg *Config) (*Table, error) {
	t := &Table{}
	if err := t.Update(cfg); err != nil {
		return nil, err
	}
	return t, nil
}

// Update 用新配置替换整张表，配置非法时保留旧表
func (t *Table) Update(cfg *Config) error {
	snap := &tableSnapshot{exact: make(map[string]actor.Deploy)}
	for pattern, section := range cfg.Deployment {
		if err := cfg.validateDeployment(pattern, section); err != nil {
			return err
		}
		d, err := section.deploy()
		if err != nil {
			return err
		}
		if isLiteral(pattern) {
			snap.exact[pattern] = d
			continue
		}
		snap.globs = append(snap.globs, globRule{pattern: pattern, deploy: d})
	}
	slices.SortFunc(snap.globs, func(a, b globRule) int {
		if c := cmp.Compare(len(b.pattern), len(a.pattern)); c != 0 {
			return c
		}
		return strings.Compare(a.pattern, b.pattern)
	})
	t.current.Store(snap)
	return nil
}

// Lookup 实现 actor.Deployer
func (t *Table) Lookup(p actor.Path) (actor.Deploy, bool) {
	snap := t.current.Load()
	if snap == nil {
		return actor.Deploy{}, false
	}
	key := p.ToStringWithoutAddress()
	if d, ok := snap.exact[key]; ok {
		return d, true
	}
	for _, g := range snap.globs {
		if ok, _ := path.Match(g.pattern, key); ok {
			return g.deploy, true
		}
	}
	return actor.Deploy{}, false
}

// Len 返回规则数量
func (t *Table) Len() int {
	snap := t.current.Load()
	if snap == nil {
		return 0
	}
	return len(snap.exact) + len(snap.globs)
}

func isLiteral(pattern string) bool {
	return !strings.ContainsAny(pattern, `*?[\`)
}
