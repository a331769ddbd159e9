package actor

// Envelope 消息信封，入队后不可变
type Envelope struct {
	Message Message
	Sender  Ref
}

// DeadLetter 无法投递的消息
type DeadLetter struct {
	Message   Message
	Sender    Ref
	Recipient Ref
}
