package ipc

import (
	"fmt"

	"github.com/swwwgo/swwwgo/internal/transition"
)

// ReqKind tags a request frame's kind byte.
type ReqKind byte

const (
	KindPing ReqKind = iota
	KindQuery
	KindImg
	KindClear
	KindRestore
	KindClearCache
	KindKill
)

func (k ReqKind) String() string {
	switch k {
	case KindPing:
		return "ping"
	case KindQuery:
		return "query"
	case KindImg:
		return "img"
	case KindClear:
		return "clear"
	case KindRestore:
		return "restore"
	case KindClearCache:
		return "clear_cache"
	case KindKill:
		return "kill"
	default:
		return fmt.Sprintf("ReqKind(%d)", byte(k))
	}
}

// RepKind tags a reply frame's kind byte.
type RepKind byte

const (
	KindOk RepKind = iota
	KindErr
	KindInfo
	KindPong
)

func (k RepKind) String() string {
	switch k {
	case KindOk:
		return "ok"
	case KindErr:
		return "err"
	case KindInfo:
		return "info"
	case KindPong:
		return "pong"
	default:
		return fmt.Sprintf("RepKind(%d)", byte(k))
	}
}

// TransitionParams is the wire shape of a transition.Descriptor. Its
// fields are written positionally in declaration order and carry no
// per-field tags, so adding or removing a field changes the wire format for
// both encoder and decoder.
type TransitionParams struct {
	Type       transition.Type
	Step       uint8
	FPS        uint8
	DurationMS uint32
	Bezier     [4]float64
	AngleDeg   float64
	PosX, PosY float64
	PosPercent bool
	InvertY    bool
	WaveW      int32
	WaveH      int32
}

// Descriptor converts the wire form into the transition package's type.
func (p TransitionParams) Descriptor() transition.Descriptor {
	return transition.Descriptor{
		Type:       p.Type,
		Step:       p.Step,
		FPS:        p.FPS,
		DurationMS: p.DurationMS,
		Bezier:     p.Bezier,
		AngleDeg:   p.AngleDeg,
		Pos:        transition.Position{X: p.PosX, Y: p.PosY, Percentage: p.PosPercent},
		InvertY:    p.InvertY,
		WaveSize:   [2]int{int(p.WaveW), int(p.WaveH)},
	}
}

// ParamsFromDescriptor is Descriptor's inverse, used client-side to put a
// CLI-resolved Descriptor on the wire.
func ParamsFromDescriptor(d transition.Descriptor) TransitionParams {
	return TransitionParams{
		Type:       d.Type,
		Step:       d.Step,
		FPS:        d.FPS,
		DurationMS: d.DurationMS,
		Bezier:     d.Bezier,
		AngleDeg:   d.AngleDeg,
		PosX:       d.Pos.X,
		PosY:       d.Pos.Y,
		PosPercent: d.Pos.Percentage,
		InvertY:    d.InvertY,
		WaveW:      int32(d.WaveSize[0]),
		WaveH:      int32(d.WaveSize[1]),
	}
}

func (p TransitionParams) marshal(w *writer) {
	w.str(string(p.Type))
	w.u8(p.Step)
	w.u8(p.FPS)
	w.u32(p.DurationMS)
	for _, v := range p.Bezier {
		w.f64(v)
	}
	w.f64(p.AngleDeg)
	w.f64(p.PosX)
	w.f64(p.PosY)
	w.boolean(p.PosPercent)
	w.boolean(p.InvertY)
	w.i32(p.WaveW)
	w.i32(p.WaveH)
}

func unmarshalTransitionParams(r *reader) (TransitionParams, error) {
	var p TransitionParams
	typ, err := r.str()
	if err != nil {
		return p, err
	}
	p.Type = transition.Type(typ)
	if p.Step, err = r.u8(); err != nil {
		return p, err
	}
	if p.FPS, err = r.u8(); err != nil {
		return p, err
	}
	if p.DurationMS, err = r.u32(); err != nil {
		return p, err
	}
	for i := range p.Bezier {
		if p.Bezier[i], err = r.f64(); err != nil {
			return p, err
		}
	}
	if p.AngleDeg, err = r.f64(); err != nil {
		return p, err
	}
	if p.PosX, err = r.f64(); err != nil {
		return p, err
	}
	if p.PosY, err = r.f64(); err != nil {
		return p, err
	}
	if p.PosPercent, err = r.boolean(); err != nil {
		return p, err
	}
	if p.InvertY, err = r.boolean(); err != nil {
		return p, err
	}
	if p.WaveW, err = r.i32(); err != nil {
		return p, err
	}
	if p.WaveH, err = r.i32(); err != nil {
		return p, err
	}
	return p, nil
}

// PingRequest checks daemon liveness; the reply is always Pong.
type PingRequest struct{}

func (PingRequest) Marshal() []byte { return nil }

func UnmarshalPingRequest([]byte) (PingRequest, error) { return PingRequest{}, nil }

// QueryRequest lists outputs matching Outputs (empty means all), per
// spec.md §4.G.
type QueryRequest struct{ Outputs []string }

func (q QueryRequest) Marshal() []byte {
	var w writer
	w.strs(q.Outputs)
	return w.bytes()
}

func UnmarshalQueryRequest(b []byte) (QueryRequest, error) {
	r := newReader(b)
	outputs, err := r.strs()
	if err != nil {
		return QueryRequest{}, err
	}
	return QueryRequest{Outputs: outputs}, r.done()
}

// ImgRequest sets a still image or animation on the matched outputs. Path
// is empty when the pixel payload instead arrives as an attached memfd
// (the `img -` stdin case, per spec.md §4.C's [SUPPLEMENT]).
type ImgRequest struct {
	Outputs     []string
	Path        string
	ContentHash uint64
	Fit         string
	FilterName  string
	FillColor   string
	FPSOverride uint8
	Transition  TransitionParams
}

func (i ImgRequest) Marshal() []byte {
	var w writer
	w.strs(i.Outputs)
	w.str(i.Path)
	w.u64(i.ContentHash)
	w.str(i.Fit)
	w.str(i.FilterName)
	w.str(i.FillColor)
	w.u8(i.FPSOverride)
	i.Transition.marshal(&w)
	return w.bytes()
}

func UnmarshalImgRequest(b []byte) (ImgRequest, error) {
	r := newReader(b)
	var i ImgRequest
	var err error
	if i.Outputs, err = r.strs(); err != nil {
		return i, err
	}
	if i.Path, err = r.str(); err != nil {
		return i, err
	}
	if i.ContentHash, err = r.u64(); err != nil {
		return i, err
	}
	if i.Fit, err = r.str(); err != nil {
		return i, err
	}
	if i.FilterName, err = r.str(); err != nil {
		return i, err
	}
	if i.FillColor, err = r.str(); err != nil {
		return i, err
	}
	if i.FPSOverride, err = r.u8(); err != nil {
		return i, err
	}
	if i.Transition, err = unmarshalTransitionParams(r); err != nil {
		return i, err
	}
	return i, r.done()
}

// ClearRequest paints a solid color on the matched outputs.
type ClearRequest struct {
	Outputs []string
	Color   string
}

func (c ClearRequest) Marshal() []byte {
	var w writer
	w.strs(c.Outputs)
	w.str(c.Color)
	return w.bytes()
}

func UnmarshalClearRequest(b []byte) (ClearRequest, error) {
	r := newReader(b)
	outputs, err := r.strs()
	if err != nil {
		return ClearRequest{}, err
	}
	color, err := r.str()
	if err != nil {
		return ClearRequest{}, err
	}
	return ClearRequest{Outputs: outputs, Color: color}, r.done()
}

// RestoreRequest reinstates last content on the matched outputs.
type RestoreRequest struct{ Outputs []string }

func (rq RestoreRequest) Marshal() []byte {
	var w writer
	w.strs(rq.Outputs)
	return w.bytes()
}

func UnmarshalRestoreRequest(b []byte) (RestoreRequest, error) {
	r := newReader(b)
	outputs, err := r.strs()
	if err != nil {
		return RestoreRequest{}, err
	}
	return RestoreRequest{Outputs: outputs}, r.done()
}

// ClearCacheRequest drops every on-disk cache entry for this namespace.
type ClearCacheRequest struct{}

func (ClearCacheRequest) Marshal() []byte { return nil }

func UnmarshalClearCacheRequest([]byte) (ClearCacheRequest, error) { return ClearCacheRequest{}, nil }

// KillRequest asks the daemon to shut down gracefully.
type KillRequest struct{}

func (KillRequest) Marshal() []byte { return nil }

func UnmarshalKillRequest([]byte) (KillRequest, error) { return KillRequest{}, nil }

// OkReply acknowledges a request that needed no data in response.
type OkReply struct{}

func (OkReply) Marshal() []byte { return nil }

func UnmarshalOkReply([]byte) (OkReply, error) { return OkReply{}, nil }

// ErrReply reports failure, with PerOutput detail for partial failures in
// multi-output requests per spec.md §4.G's routing rule.
type ErrReply struct {
	Message   string
	PerOutput map[string]string
}

func (e ErrReply) Marshal() []byte {
	var w writer
	w.str(e.Message)
	w.u32(uint32(len(e.PerOutput)))
	for name, detail := range e.PerOutput {
		w.str(name)
		w.str(detail)
	}
	return w.bytes()
}

func UnmarshalErrReply(b []byte) (ErrReply, error) {
	r := newReader(b)
	msg, err := r.str()
	if err != nil {
		return ErrReply{}, err
	}
	n, err := r.u32()
	if err != nil {
		return ErrReply{}, err
	}
	perOutput := make(map[string]string, n)
	for i := uint32(0); i < n; i++ {
		name, err := r.str()
		if err != nil {
			return ErrReply{}, err
		}
		detail, err := r.str()
		if err != nil {
			return ErrReply{}, err
		}
		perOutput[name] = detail
	}
	return ErrReply{Message: msg, PerOutput: perOutput}, r.done()
}

// OutputInfo is one line of a Query reply: geometry, scale, and current
// content, matching spec.md §6's textual query output one-for-one.
type OutputInfo struct {
	Name         string
	Width        int32
	Height       int32
	Scale120     uint32
	ContentKind  string // "image", "color", or "" if nothing has been set yet
	ContentPath  string
	ContentColor string
}

func (o OutputInfo) marshal(w *writer) {
	w.str(o.Name)
	w.i32(o.Width)
	w.i32(o.Height)
	w.u32(o.Scale120)
	w.str(o.ContentKind)
	w.str(o.ContentPath)
	w.str(o.ContentColor)
}

func unmarshalOutputInfo(r *reader) (OutputInfo, error) {
	var o OutputInfo
	var err error
	if o.Name, err = r.str(); err != nil {
		return o, err
	}
	if o.Width, err = r.i32(); err != nil {
		return o, err
	}
	if o.Height, err = r.i32(); err != nil {
		return o, err
	}
	if o.Scale120, err = r.u32(); err != nil {
		return o, err
	}
	if o.ContentKind, err = r.str(); err != nil {
		return o, err
	}
	if o.ContentPath, err = r.str(); err != nil {
		return o, err
	}
	if o.ContentColor, err = r.str(); err != nil {
		return o, err
	}
	return o, nil
}

// InfoReply answers a Query request.
type InfoReply struct{ Outputs []OutputInfo }

func (i InfoReply) Marshal() []byte {
	var w writer
	w.u32(uint32(len(i.Outputs)))
	for _, o := range i.Outputs {
		o.marshal(&w)
	}
	return w.bytes()
}

func UnmarshalInfoReply(b []byte) (InfoReply, error) {
	r := newReader(b)
	n, err := r.u32()
	if err != nil {
		return InfoReply{}, err
	}
	outputs := make([]OutputInfo, 0, n)
	for i := uint32(0); i < n; i++ {
		o, err := unmarshalOutputInfo(r)
		if err != nil {
			return InfoReply{}, err
		}
		outputs = append(outputs, o)
	}
	return InfoReply{Outputs: outputs}, r.done()
}

// PongReply answers a Ping request.
type PongReply struct{}

func (PongReply) Marshal() []byte { return nil }

func UnmarshalPongReply([]byte) (PongReply, error) { return PongReply{}, nil }
