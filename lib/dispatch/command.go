package dispatch

// Op names the CRUD operation of a command.
type Op uint8

const (
	OpReadList Op = iota + 1
	OpReadByID
	OpCreate
	OpUpdate
	OpDeleteByID
)

func (o Op) String() string {
	switch o {
	case OpReadList:
		return "read_list"
	case OpReadByID:
		return "read_by_id"
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDeleteByID:
		return "delete_by_id"
	default:
		return "unknown"
	}
}

// allOps is used to pre-register metrics
var allOps = []Op{OpReadList, OpReadByID, OpCreate, OpUpdate, OpDeleteByID}

// Command is the envelope of one CRUD request: the operation's input and the
// sender half of its reply slot. The set of variants is closed.
type Command[I comparable, T any] interface {
	// Op returns the operation of the command.
	Op() Op
	// Fail resolves the reply with err, it returns false if the reply was
	// already settled or the receiver is gone.
	Fail(err error) bool

	// settled reports whether the reply was consumed
	settled() bool
	// receiverGone reports whether nobody waits for the reply anymore
	receiverGone() bool
}

// --------------------------------------------------------------------------
// Variants
// --------------------------------------------------------------------------

// ReadList requests all entities.
type ReadList[I comparable, T any] struct {
	Reply *ReplySender[[]T]
}

// ReadByID requests the entity with key ID.
type ReadByID[I comparable, T any] struct {
	ID    I
	Reply *ReplySender[T]
}

// Create requests to persist Data.
type Create[I comparable, T any] struct {
	Data  T
	Reply *ReplySender[T]
}

// Update requests to replace the stored entity addressed by Data.
type Update[I comparable, T any] struct {
	Data  T
	Reply *ReplySender[T]
}

// DeleteByID requests to delete the entity with key ID.
type DeleteByID[I comparable, T any] struct {
	ID    I
	Reply *ReplySender[T]
}

// NewReadList creates a ReadList command and the receiver of its reply.
func NewReadList[I comparable, T any]() (*ReadList[I, T], *ReplyReceiver[[]T]) {
	tx, rx := NewReply[[]T]()
	return &ReadList[I, T]{Reply: tx}, rx
}

// NewReadByID creates a ReadByID command and the receiver of its reply.
func NewReadByID[I comparable, T any](id I) (*ReadByID[I, T], *ReplyReceiver[T]) {
	tx, rx := NewReply[T]()
	return &ReadByID[I, T]{ID: id, Reply: tx}, rx
}

// NewCreate creates a Create command and the receiver of its reply.
func NewCreate[I comparable, T any](data T) (*Create[I, T], *ReplyReceiver[T]) {
	tx, rx := NewReply[T]()
	return &Create[I, T]{Data: data, Reply: tx}, rx
}

// NewUpdate creates an Update command and the receiver of its reply.
func NewUpdate[I comparable, T any](data T) (*Update[I, T], *ReplyReceiver[T]) {
	tx, rx := NewReply[T]()
	return &Update[I, T]{Data: data, Reply: tx}, rx
}

// NewDeleteByID creates a DeleteByID command and the receiver of its reply.
func NewDeleteByID[I comparable, T any](id I) (*DeleteByID[I, T], *ReplyReceiver[T]) {
	tx, rx := NewReply[T]()
	return &DeleteByID[I, T]{ID: id, Reply: tx}, rx
}

func (c *ReadList[I, T]) Op() Op   { return OpReadList }
func (c *ReadByID[I, T]) Op() Op   { return OpReadByID }
func (c *Create[I, T]) Op() Op     { return OpCreate }
func (c *Update[I, T]) Op() Op     { return OpUpdate }
func (c *DeleteByID[I, T]) Op() Op { return OpDeleteByID }

func (c *ReadList[I, T]) Fail(err error) bool   { return c.Reply.Resolve(nil, err) }
func (c *ReadByID[I, T]) Fail(err error) bool   { return fail(c.Reply, err) }
func (c *Create[I, T]) Fail(err error) bool     { return fail(c.Reply, err) }
func (c *Update[I, T]) Fail(err error) bool     { return fail(c.Reply, err) }
func (c *DeleteByID[I, T]) Fail(err error) bool { return fail(c.Reply, err) }

func (c *ReadList[I, T]) settled() bool   { return c.Reply.Settled() }
func (c *ReadByID[I, T]) settled() bool   { return c.Reply.Settled() }
func (c *Create[I, T]) settled() bool     { return c.Reply.Settled() }
func (c *Update[I, T]) settled() bool     { return c.Reply.Settled() }
func (c *DeleteByID[I, T]) settled() bool { return c.Reply.Settled() }

func (c *ReadList[I, T]) receiverGone() bool   { return c.Reply.ReceiverGone() }
func (c *ReadByID[I, T]) receiverGone() bool   { return c.Reply.ReceiverGone() }
func (c *Create[I, T]) receiverGone() bool     { return c.Reply.ReceiverGone() }
func (c *Update[I, T]) receiverGone() bool     { return c.Reply.ReceiverGone() }
func (c *DeleteByID[I, T]) receiverGone() bool { return c.Reply.ReceiverGone() }

func fail[T any](reply *ReplySender[T], err error) bool {
	var zero T
	return reply.Resolve(zero, err)
}
