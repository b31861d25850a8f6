package translation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sarchlab/ttcnport/codec"
	"github.com/sarchlab/ttcnport/hooking"
)

var (
	// ErrTranslationExhausted means that no mapping target accepted the value
	// and the rule has no Discard target.
	ErrTranslationExhausted = errors.New("no mapping target succeeded")

	// ErrUnsetTranslationState means that a translation function of a
	// translating port returned without setting the translation state.
	ErrUnsetTranslationState = errors.New("translation state left unset")

	// ErrNoRule means that the type has no mapping rule in that direction.
	ErrNoRule = errors.New("no mapping rule")
)

var (
	// HookPosTranslationStart marks the entry of a value into the pipeline.
	HookPosTranslationStart = &hooking.HookPos{Name: "Translation Start"}

	// HookPosTargetSucceeded marks a target producing a value.
	HookPosTargetSucceeded = &hooking.HookPos{Name: "Translation Target Succeeded"}

	// HookPosTargetFailed marks a target refusing a value.
	HookPosTargetFailed = &hooking.HookPos{Name: "Translation Target Failed"}

	// HookPosTranslationPending marks a translation that waits for more data.
	HookPosTranslationPending = &hooking.HookPos{Name: "Translation Pending"}

	// HookPosTranslationDiscard marks a value being discarded.
	HookPosTranslationDiscard = &hooking.HookPos{Name: "Translation Discard"}

	// HookPosTranslationExhausted marks a value that no target accepted.
	HookPosTranslationExhausted = &hooking.HookPos{Name: "Translation Exhausted"}

	// HookPosCodecError marks a codec failure under the ERROR behavior.
	HookPosCodecError = &hooking.HookPos{Name: "Codec Error"}

	// HookPosCodecWarning marks a codec failure under the WARNING behavior.
	HookPosCodecWarning = &hooking.HookPos{Name: "Codec Warning"}
)

// Error reports a fatal translation failure.
type Error struct {
	Port      string
	Direction Direction
	TypeTag   string
	Target    string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("port %s: %s mapping of %s", e.Port, e.Direction, e.TypeTag)
	if e.Target != "" {
		msg += " (" + e.Target + ")"
	}

	return msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Decision is the Detail of every hook the pipeline invokes.
type Decision struct {
	Direction   Direction
	TypeTag     string
	TargetIndex int
	Target      string
	State       State
	Err         error
}

// Output is one translated value.
type Output struct {
	TypeTag string
	Value   any
}

// Result is the outcome of a translation that did not fail fatally.
type Result struct {
	// Outputs is empty when the value was discarded or is pending. A sliding
	// target may produce more than one output from one chunk.
	Outputs []Output

	// Discarded is set when a Discard target, or a function reporting the
	// Discarded state, terminated the pipeline. A sliding target sets it
	// next to Outputs when it dropped some frames of a chunk and decoded
	// others.
	Discarded bool

	// Pending is set when a sliding or fragment-reassembling target needs
	// more data before it can produce a value.
	Pending bool
}

// A Pipeline holds the mapping rules of one port and runs values through
// them.
type Pipeline struct {
	hooking.HookableBase

	lock        sync.Mutex
	name        string
	translating bool
	codecs      *codec.Registry
	types       *codec.TypeRegistry
	rules       [2]map[string]MappingRule
	sliding     []byte
}

// PipelineBuilder builds pipelines.
type PipelineBuilder struct {
	translating bool
	codecs      *codec.Registry
	types       *codec.TypeRegistry
	out, in     []MappingRule
}

// MakePipelineBuilder creates a builder with the default codecs and type
// registry.
func MakePipelineBuilder() PipelineBuilder {
	return PipelineBuilder{}
}

// WithTranslating makes the pipeline judge function results by the
// translation state.
func (b PipelineBuilder) WithTranslating(translating bool) PipelineBuilder {
	b.translating = translating
	return b
}

// WithCodecs sets the codecs that Encode and Decode targets look up.
func (b PipelineBuilder) WithCodecs(r *codec.Registry) PipelineBuilder {
	b.codecs = r
	return b
}

// WithTypes sets the registry that Decode targets allocate values from.
func (b PipelineBuilder) WithTypes(r *codec.TypeRegistry) PipelineBuilder {
	b.types = r
	return b
}

// WithOutRule adds an outbound rule.
func (b PipelineBuilder) WithOutRule(r MappingRule) PipelineBuilder {
	b.out = append(append([]MappingRule(nil), b.out...), r)
	return b
}

// WithInRule adds an inbound rule.
func (b PipelineBuilder) WithInRule(r MappingRule) PipelineBuilder {
	b.in = append(append([]MappingRule(nil), b.in...), r)
	return b
}

// Build creates the pipeline. It panics if a rule is invalid.
func (b PipelineBuilder) Build(name string) *Pipeline {
	p := &Pipeline{
		name:        name,
		translating: b.translating,
		codecs:      b.codecs,
		types:       b.types,
		rules: [2]map[string]MappingRule{
			make(map[string]MappingRule),
			make(map[string]MappingRule),
		},
	}

	if p.codecs == nil {
		p.codecs = codec.DefaultRegistry()
	}

	if p.types == nil {
		p.types = codec.NewTypeRegistry()
	}

	for _, r := range b.out {
		if err := p.AddRule(Outbound, r); err != nil {
			panic(err)
		}
	}

	for _, r := range b.in {
		if err := p.AddRule(Inbound, r); err != nil {
			panic(err)
		}
	}

	return p
}

// Name returns the name of the port the pipeline belongs to.
func (p *Pipeline) Name() string {
	return p.name
}

// Translating reports whether function results are judged by the
// translation state.
func (p *Pipeline) Translating() bool {
	return p.translating
}

// AddRule validates and registers a rule. A type can have one rule per
// direction.
func (p *Pipeline) AddRule(dir Direction, r MappingRule) error {
	if err := r.Validate(); err != nil {
		return err
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	if _, found := p.rules[dir][r.InType]; found {
		return fmt.Errorf("%s mapping rule for %s already exists", dir, r.InType)
	}

	p.rules[dir][r.InType] = r

	return nil
}

// HasRule reports whether values of typeTag are translated in the direction.
func (p *Pipeline) HasRule(dir Direction, typeTag string) bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	_, found := p.rules[dir][typeTag]

	return found
}

// Rule returns the rule for typeTag in the direction.
func (p *Pipeline) Rule(dir Direction, typeTag string) (MappingRule, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()

	r, found := p.rules[dir][typeTag]

	return r, found
}

// SlidingBuffer returns a copy of the bytes waiting for a sliding target.
func (p *Pipeline) SlidingBuffer() []byte {
	p.lock.Lock()
	defer p.lock.Unlock()

	return append([]byte(nil), p.sliding...)
}

// Reset empties the sliding buffer.
func (p *Pipeline) Reset() {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.sliding = nil
}

// Translate runs value through the rule of typeTag. The first target that
// succeeds produces the result. Running out of targets without a Discard
// target is an ErrTranslationExhausted error.
func (p *Pipeline) Translate(
	dir Direction,
	typeTag string,
	value any,
) (Result, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	rule, found := p.rules[dir][typeTag]
	if !found {
		return Result{}, &Error{
			Port: p.name, Direction: dir, TypeTag: typeTag, Err: ErrNoRule,
		}
	}

	run := &pipelineRun{
		p:     p,
		dir:   dir,
		rule:  rule,
		value: value,
		ctx:   &Ctx{port: p.name, direction: dir},
		mark:  len(p.sliding),
	}

	p.invoke(HookPosTranslationStart, value, Decision{
		Direction: dir, TypeTag: typeTag, TargetIndex: -1,
	})

	return run.execute()
}

func (p *Pipeline) invoke(pos *hooking.HookPos, item any, d Decision) {
	if p.NumHooks() == 0 {
		return
	}

	p.InvokeHook(hooking.HookCtx{
		Domain: p,
		Pos:    pos,
		Item:   item,
		Detail: d,
	})
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeSucceeded
	outcomePending
	outcomeDiscarded
)

type pipelineRun struct {
	p     *Pipeline
	dir   Direction
	rule  MappingRule
	value any
	ctx   *Ctx

	// mark is the length of the sliding buffer before this run appended to
	// it.
	mark          int
	appended      bool
	slidingFailed bool

	// trimmed counts the bytes a sliding target took off the front of the
	// buffer; droppedFrames the frames it discarded.
	trimmed       int
	droppedFrames int
	reader        *bytes.Reader
	outputs       []Output
}

func (r *pipelineRun) execute() (Result, error) {
	if r.rule.UsesSliding() {
		r.appendChunk()
	}

	for i, t := range r.rule.Targets {
		r.ctx.state = Unset

		o, err := r.runTarget(i, t)
		if err != nil {
			r.rewindSliding()
			return Result{}, &Error{
				Port: r.p.name, Direction: r.dir, TypeTag: r.rule.InType,
				Target: t.String(), Err: err,
			}
		}

		switch o {
		case outcomeSucceeded:
			if !(t.Kind == Function && t.Strategy == Sliding) {
				r.rewindSliding()
			}

			r.p.invoke(HookPosTargetSucceeded, r.value, r.decision(i, t, nil))

			if r.droppedFrames > 0 {
				r.p.invoke(HookPosTranslationDiscard, r.value, r.decision(i, t, nil))
			}

			return Result{Outputs: r.outputs, Discarded: r.droppedFrames > 0}, nil
		case outcomePending:
			if !(t.Kind == Function && t.Strategy == Sliding) {
				r.rewindSliding()
			}

			r.p.invoke(HookPosTranslationPending, r.value, r.decision(i, t, nil))

			return Result{Pending: true}, nil
		case outcomeDiscarded:
			r.rewindSliding()
			r.p.invoke(HookPosTranslationDiscard, r.value, r.decision(i, t, nil))

			return Result{Discarded: true}, nil
		default:
			if t.Kind != Discard {
				r.p.invoke(HookPosTargetFailed, r.value, r.decision(i, t, nil))
			}
		}
	}

	r.rewindSliding()
	r.p.invoke(HookPosTranslationExhausted, r.value,
		r.decision(-1, MappingTarget{}, ErrTranslationExhausted))

	return Result{}, &Error{
		Port: r.p.name, Direction: r.dir, TypeTag: r.rule.InType,
		Err: ErrTranslationExhausted,
	}
}

func (r *pipelineRun) decision(i int, t MappingTarget, err error) Decision {
	d := Decision{
		Direction:   r.dir,
		TypeTag:     r.rule.InType,
		TargetIndex: i,
		State:       r.ctx.state,
		Err:         err,
	}

	if i >= 0 {
		d.Target = t.String()
	}

	return d
}

// appendChunk adds the raw chunk to the sliding buffer, once per run.
func (r *pipelineRun) appendChunk() {
	chunk, ok := r.value.([]byte)
	if !ok {
		return
	}

	r.p.sliding = append(r.p.sliding, chunk...)
	r.appended = true
}

// rewindSliding takes this run's chunk back out of the sliding buffer when
// the chunk was handled by something other than a sliding target. After a
// sliding target rejected the buffer, nothing in it can be decoded anymore
// and the whole buffer goes. Once a sliding target took bytes off the front,
// the buffer is left as that target left it.
func (r *pipelineRun) rewindSliding() {
	if !r.appended {
		return
	}

	if r.trimmed > 0 {
		if len(r.p.sliding) == 0 {
			r.p.sliding = nil
		}

		return
	}

	if r.slidingFailed {
		r.p.sliding = nil
	} else if len(r.p.sliding) >= r.mark {
		r.p.sliding = r.p.sliding[:r.mark]
	}

	if len(r.p.sliding) == 0 {
		r.p.sliding = nil
	}

	r.appended = false
}

func (r *pipelineRun) runTarget(i int, t MappingTarget) (outcome, error) {
	switch t.Kind {
	case Simple:
		r.emit(t.OutType, r.value)
		return outcomeSucceeded, nil
	case Function:
		return r.runFunction(t)
	case Encode:
		return r.runEncode(i, t), nil
	case Decode:
		return r.runDecode(i, t), nil
	case Discard:
		return outcomeDiscarded, nil
	default:
		return outcomeFailed, fmt.Errorf("invalid target kind %d", int(t.Kind))
	}
}

func (r *pipelineRun) emit(typeTag string, v any) {
	r.outputs = append(r.outputs, Output{TypeTag: typeTag, Value: v})
}

func (r *pipelineRun) runFunction(t MappingTarget) (outcome, error) {
	switch t.Strategy {
	case Convert:
		r.emit(t.OutType, t.Convert(r.value))
		return outcomeSucceeded, nil
	case Fast:
		return r.runFast(t)
	case Backtrack:
		return r.runBacktrack(t)
	case Sliding:
		return r.runSliding(t)
	default:
		return outcomeFailed, fmt.Errorf("invalid strategy %d", int(t.Strategy))
	}
}

// stateOutcome interprets the translation state a function left behind on a
// translating port.
func (r *pipelineRun) stateOutcome() (outcome, error) {
	switch r.ctx.state {
	case Unset:
		return outcomeFailed, ErrUnsetTranslationState
	case Translated, PartiallyTranslated:
		return outcomeSucceeded, nil
	case Fragmented:
		return outcomePending, nil
	case Discarded:
		return outcomeDiscarded, nil
	default:
		return outcomeFailed, nil
	}
}

func (r *pipelineRun) runFast(t MappingTarget) (outcome, error) {
	var out any

	t.Fast(r.ctx, r.value, &out)

	if !r.p.translating {
		r.emit(t.OutType, out)
		return outcomeSucceeded, nil
	}

	o, err := r.stateOutcome()
	if o == outcomeSucceeded {
		r.emit(t.OutType, out)
	}

	return o, err
}

func (r *pipelineRun) runBacktrack(t MappingTarget) (outcome, error) {
	var out any

	ok := t.Backtrack(r.ctx, r.value, &out)

	if r.p.translating {
		o, err := r.stateOutcome()
		if err != nil || o == outcomePending || o == outcomeDiscarded {
			return o, err
		}
	}

	if !ok {
		return outcomeFailed, nil
	}

	r.emit(t.OutType, out)

	return outcomeSucceeded, nil
}

func (r *pipelineRun) runSliding(t MappingTarget) (outcome, error) {
	if !r.appended {
		return outcomeFailed, nil
	}

	produced := false

	for len(r.p.sliding) > 0 {
		var out any

		r.ctx.state = Unset
		consumed, res := t.Sliding(r.ctx, r.p.sliding, &out)

		if r.p.translating {
			res2, err := r.slidingStateResult(res)
			if err != nil {
				return outcomeFailed, err
			}

			if res2 == outcomeDiscarded {
				err := r.dropFrame(t, consumed)
				if err != nil {
					return outcomeFailed, err
				}

				continue
			}

			if res2 == outcomePending {
				res = SlidingNeedMoreData
			} else if res2 == outcomeFailed {
				res = SlidingFailure
			}
		}

		switch res {
		case SlidingSuccess:
			if consumed < 0 || consumed > len(r.p.sliding) {
				return outcomeFailed, r.badConsumption(t, consumed)
			}

			r.trimSliding(consumed)
			r.emit(t.OutType, out)
			produced = true

			if consumed == 0 || !r.continueSliding() {
				return r.slidingDone(produced), nil
			}
		case SlidingNeedMoreData:
			return r.slidingDone(produced), nil
		default:
			if produced || r.droppedFrames > 0 {
				r.p.sliding = nil
				return r.slidingDone(produced), nil
			}

			r.slidingFailed = true

			return outcomeFailed, nil
		}
	}

	return r.slidingDone(produced), nil
}

// dropFrame removes a frame the function discarded. Without a consumed
// count, the rest of the buffer goes.
func (r *pipelineRun) dropFrame(t MappingTarget, consumed int) error {
	if consumed < 0 || consumed > len(r.p.sliding) {
		return r.badConsumption(t, consumed)
	}

	if consumed == 0 {
		consumed = len(r.p.sliding)
	}

	r.trimSliding(consumed)
	r.droppedFrames++

	return nil
}

func (r *pipelineRun) badConsumption(t MappingTarget, consumed int) error {
	return fmt.Errorf("sliding function %s consumed %d of %d bytes",
		t.FuncName, consumed, len(r.p.sliding))
}

// trimSliding removes n decoded bytes from the front of the buffer.
func (r *pipelineRun) trimSliding(n int) {
	r.p.sliding = r.p.sliding[n:]
	r.trimmed += n
}

// continueSliding decides whether another frame is decoded from the same
// chunk: translating ports continue while the function reports a partial
// translation, other ports while bytes remain.
func (r *pipelineRun) continueSliding() bool {
	if r.p.translating {
		return r.ctx.state == PartiallyTranslated && len(r.p.sliding) > 0
	}

	return len(r.p.sliding) > 0
}

func (r *pipelineRun) slidingDone(produced bool) outcome {
	if len(r.p.sliding) == 0 {
		r.p.sliding = nil
	}

	switch {
	case produced:
		return outcomeSucceeded
	case r.droppedFrames > 0:
		return outcomeDiscarded
	default:
		return outcomePending
	}
}

func (r *pipelineRun) slidingStateResult(res SlidingResult) (outcome, error) {
	switch r.ctx.state {
	case Unset:
		return outcomeFailed, ErrUnsetTranslationState
	case Fragmented:
		return outcomePending, nil
	case Discarded:
		return outcomeDiscarded, nil
	case NotTranslated:
		return outcomeFailed, nil
	}

	if res == SlidingSuccess {
		return outcomeSucceeded, nil
	}

	if res == SlidingNeedMoreData {
		return outcomePending, nil
	}

	return outcomeFailed, nil
}

func (r *pipelineRun) runEncode(i int, t MappingTarget) outcome {
	c, err := r.p.codecs.Lookup(t.Codec.Encoding)
	if err != nil {
		r.codecFailed(i, t, err)
		return outcomeFailed
	}

	buf := new(bytes.Buffer)

	err = c.Encode(buf, r.value, t.Codec.Options)
	if err != nil {
		r.codecFailed(i, t, &codec.EncodeError{
			Encoding: c.Name(), Descriptor: t.Codec.Descriptor, Err: err,
		})

		return outcomeFailed
	}

	r.emit(t.OutType, buf.Bytes())

	return outcomeSucceeded
}

func (r *pipelineRun) runDecode(i int, t MappingTarget) outcome {
	raw, ok := r.value.([]byte)
	if !ok {
		r.codecFailed(i, t, fmt.Errorf("cannot decode %T, bytes expected", r.value))
		return outcomeFailed
	}

	c, err := r.p.codecs.Lookup(t.Codec.Encoding)
	if err != nil {
		r.codecFailed(i, t, err)
		return outcomeFailed
	}

	descriptor := t.Codec.Descriptor
	if descriptor == "" {
		descriptor = t.OutType
	}

	ptr, err := r.p.types.New(descriptor)
	if err != nil {
		r.codecFailed(i, t, err)
		return outcomeFailed
	}

	if r.reader == nil {
		r.reader = bytes.NewReader(raw)
	} else if _, err := r.reader.Seek(0, io.SeekStart); err != nil {
		r.codecFailed(i, t, err)
		return outcomeFailed
	}

	err = c.Decode(r.reader, ptr, t.Codec.Options)
	if err != nil {
		r.codecFailed(i, t, &codec.DecodeError{
			Encoding: c.Name(), Descriptor: descriptor, Err: err,
		})

		return outcomeFailed
	}

	r.emit(t.OutType, codec.Deref(ptr))

	return outcomeSucceeded
}

func (r *pipelineRun) codecFailed(i int, t MappingTarget, err error) {
	switch t.Codec.ErrorBehavior {
	case codec.ErrorBehaviorIgnore:
	case codec.ErrorBehaviorWarning:
		r.p.invoke(HookPosCodecWarning, r.value, r.decision(i, t, err))
	default:
		r.p.invoke(HookPosCodecError, r.value, r.decision(i, t, err))
	}
}
