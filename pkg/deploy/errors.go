package deploy

import "errors"

// 配置加载错误
var (
	ErrConfigFileNotFound = errors.New("configuration file not found")
	ErrConfigParse        = errors.New("configuration parse error")
	ErrConfigWatch        = errors.New("configuration watch error")
)

// 配置校验错误
var (
	ErrInvalidSystemName = errors.New("invalid system name")
	ErrInvalidLogLevel   = errors.New("invalid log level")
	ErrInvalidLogFormat  = errors.New("invalid log format")
	ErrInvalidDispatcher = errors.New("invalid dispatcher")
	ErrUnknownDispatcher = errors.New("unknown dispatcher")
	ErrInvalidPattern    = errors.New("invalid deployment pattern")
	ErrInvalidMailbox    = errors.New("invalid mailbox")
	ErrInvalidStrategy   = errors.New("invalid supervisor strategy")
	ErrInvalidDecider    = errors.New("invalid supervisor decider")
)
