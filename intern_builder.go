package tobytes

import (
	"bytes"

	"github.com/stestagg/tobytes/internal/wire"
)

// internBuilder accumulates the entries of a single top-level ext
// 0x06 table during one Encoder.Encode call. It mirrors the
// encode-before-assign-index discipline of the Python and Rust prior
// implementations (SPEC_FULL.md's SUPPLEMENTED FEATURES #3): a
// candidate's own bytes are rendered — recursively, so any nested
// candidate gets a lower index first — before the candidate itself is
// assigned an index.
type internBuilder struct {
	entries   [][]byte
	assigned  map[string]int // canonical key -> assigned index, fast default-equality path
	eligible  map[string]bool
	useCustom bool              // true if policy.InternEquality is set (non-default)
	equality  InternEquality    // only set when useCustom
	custom    []customCandidate // used only when useCustom
}

type customCandidate struct {
	obj Object
	idx int
}

// encodeWithInterning runs the full intern pass: count occurrences,
// decide eligibility via the cost model (or force-include for
// Interned() values), then render body with dedup active, and wrap
// the whole thing in a single ext 0x06 envelope. When no entry was
// produced, the body is returned unwrapped.
func (c *encodeCtx) encodeWithInterning(root Object) []byte {
	b := &internBuilder{
		assigned: map[string]int{},
		eligible: map[string]bool{},
	}
	b.useCustom = c.enc.policy.InternEquality != nil
	if b.useCustom {
		b.equality = c.enc.policy.InternEquality
	}
	c.intern = b

	counts := map[string]int{}
	forced := map[string]bool{}
	countInternCandidates(root, counts, forced, c)
	b.decideEligibility(counts, forced)

	bodyBytes := c.renderRaw(root)

	if len(b.entries) == 0 {
		return bodyBytes
	}

	var entriesBuf bytes.Buffer
	w := wire.NewWriter(&entriesBuf)
	if err := w.Write(wire.Token{Kind: wire.KindArrayHeader, Len: len(b.entries)}); err != nil {
		panic(wrapStructuralError(KindMalformedMsgPack, err, "writing intern entries header"))
	}
	for _, e := range b.entries {
		entriesBuf.Write(e)
	}

	payload := arrayOf2(entriesBuf.Bytes(), bodyBytes)
	return wrapExt(extIDInternTable, payload)
}

// decideEligibility applies spec.md §9's cost-model heuristic: intern
// when byte cost of entries[i] * (occurrences-1) exceeds the cost of
// one reference * occurrences plus table overhead. Forced (Interned())
// keys bypass the heuristic entirely.
func (b *internBuilder) decideEligibility(counts map[string]int, forced map[string]bool) {
	const refCost = 3     // approx bytes for a fixext1 ext6(uint) reference
	const tableOverhead = 2 // approx per-entry array/ext bookkeeping

	for key, n := range counts {
		if forced[key] {
			b.eligible[key] = true
			continue
		}
		if n < 2 {
			continue
		}
		entryCost := len(key) // canonical-bytes length as a proxy for encoded size
		if entryCost*(n-1) > refCost*n+tableOverhead {
			b.eligible[key] = true
		}
	}
}

// resolve checks whether obj is an interning candidate. If it is and
// has already been assigned an index, it returns the reference bytes
// directly. If it is eligible but not yet assigned, resolve renders
// its representative bytes via renderRaw (so nested candidates get
// lower indices first), appends them as a new entry, assigns that
// index, and returns a reference to it. Non-candidates return
// handled=false and the caller renders them itself.
func (b *internBuilder) resolve(obj Object, c *encodeCtx) (bs []byte, handled bool) {
	key := internCandidateKey(obj, c)
	if key == "" {
		return nil, false
	}
	if !b.eligible[key] {
		return nil, false
	}
	if idx, ok := b.lookupAssigned(obj, key); ok {
		return referenceBytes(idx), true
	}
	rep := c.renderRaw(obj)
	idx := len(b.entries)
	b.entries = append(b.entries, rep)
	b.assign(obj, key, idx)
	return referenceBytes(idx), true
}

func (b *internBuilder) lookupAssigned(obj Object, key string) (int, bool) {
	if !b.useCustom {
		idx, ok := b.assigned[key]
		return idx, ok
	}
	for _, cand := range b.custom {
		if b.equality(cand.obj, obj) {
			return cand.idx, true
		}
	}
	return 0, false
}

func (b *internBuilder) assign(obj Object, key string, idx int) {
	if !b.useCustom {
		b.assigned[key] = idx
		return
	}
	b.custom = append(b.custom, customCandidate{obj: obj, idx: idx})
}

// countInternCandidates performs the discovery pass: every
// non-trivial subtree is counted by its canonical-bytes key, and any
// subtree wrapped with Interned()/InternedWithEquality is additionally
// marked forced regardless of its natural count.
func countInternCandidates(obj Object, counts map[string]int, forced map[string]bool, c *encodeCtx) {
	key := internCandidateKey(obj, c)
	if key != "" {
		counts[key]++
		if obj.ForceIntern {
			forced[key] = true
		}
	}
	switch obj.Kind {
	case KObjArray:
		for _, item := range obj.Array {
			countInternCandidates(item, counts, forced, c)
		}
	case KObjMap:
		for _, entry := range obj.Map {
			countInternCandidates(entry.Key, counts, forced, c)
			countInternCandidates(entry.Value, counts, forced, c)
		}
	}
}

// internCandidateKey returns the canonical-bytes key used to group
// interning candidates, or "" if obj's kind is too trivial to ever be
// worth interning (nil/bool/numeric primitives and empty strings). For
// KObjCustom, the key folds in the wrapped value's registered type and
// codec-encoded payload (or Go identity under ByIdentity) via c, so
// distinct custom values never collide on a bare tag (see
// writeCanonicalCustom).
func internCandidateKey(obj Object, c *encodeCtx) string {
	switch obj.Kind {
	case KObjStr:
		if obj.Str == "" {
			return ""
		}
	case KObjBin:
		if len(obj.Bin) == 0 {
			return ""
		}
	case KObjArray, KObjMap, KObjCustom, KObjOpaqueRaw:
		// always a candidate
	default:
		return ""
	}
	return string(canonicalBytes(obj, c))
}

func referenceBytes(idx int) []byte {
	return wrapExt(extIDInternTable, uintBytes(uint64(idx)))
}

func arrayOf2(a, b []byte) []byte {
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	if err := w.Write(wire.Token{Kind: wire.KindArrayHeader, Len: 2}); err != nil {
		panic(wrapStructuralError(KindMalformedMsgPack, err, "writing array header"))
	}
	buf.Write(a)
	buf.Write(b)
	return buf.Bytes()
}
