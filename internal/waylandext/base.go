package waylandext

// objBase gives every protocol object here the ID()/SetID() bookkeeping
// wire.Object implementations carry alongside Dispatch, matching the
// pattern deedles.dev/wl's own generated per-interface objects use (an
// embedded ID field set once by the connection's object registry at bind
// time).
type objBase struct {
	id uint32
}

func (o *objBase) ID() uint32     { return o.id }
func (o *objBase) SetID(id uint32) { o.id = id }
