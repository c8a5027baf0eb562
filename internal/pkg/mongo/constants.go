package mongo

const (
	tokenTable     = "token"
	recipientTable = "recipient"
	graphTokenID   = "graph"
	opTimeout      = 10
)
