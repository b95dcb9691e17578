package core

import "bytes"

var (
	keyReadonly    = []byte(`"readonly":`)
	keyWritable    = []byte(`"writable":`)
	keyPostToken   = []byte(`"postTokenBalances":`)
	keyPreToken    = []byte(`"preTokenBalances":`)
	keyAccountKeys = []byte(`"accountKeys":`)
)

// locatorState is the transaction locator's fixed-order state machine
// position: it always expects the next key in this sequence.
type locatorState int

const (
	expectWritable locatorState = iota
	expectPostToken
	expectPreToken
	expectAccountKeys
)

// keyPrecedes reports whether buf[pos-len(key):pos] equals key
// exactly, byte for byte, with no whitespace tolerance.
func keyPrecedes(buf []byte, pos int, key []byte) bool {
	if pos < len(key) {
		return false
	}
	return bytes.Equal(buf[pos-len(key):pos], key)
}

// viewFromIndex returns the slice [buf[start], buf[end]] inclusive of
// the matching bracket at skip[i], i.e. [index[i], index[skip[i]]+1).
// skip[i] <= i means the bracket at i is unmatched (either it is the
// builder's zero-initialized sentinel or, defensively, some other
// non-forward reference); ok is false in that case and the caller must
// not construct a view from it. A truncated/malformed payload whose
// array never closes hits this path, and must be tolerated rather than
// produce a slice whose end precedes its start.
func viewFromIndex(buf []byte, index []uint32, skip []int, i int) (view []byte, ok bool) {
	j := skip[i]
	if j <= i {
		return nil, false
	}
	start := index[i]
	end := index[j]
	return buf[start : end+1], true
}

// FindTransactionViews walks the structural index position by
// position, recognizing the five keyed arrays of each transaction in
// the fixed order readonly -> writable -> postTokenBalances ->
// preTokenBalances -> accountKeys. Encountering "readonly" always
// resets the machine and starts a new transaction; a key seen out of
// order is ignored and the machine stays in its current state. This
// is order-dependent by design: reordering the source JSON silently
// drops transactions.
func FindTransactionViews(buf []byte, index []uint32, skip []int) []TxKeyViews {
	var out []TxKeyViews
	var current TxKeyViews
	state := expectWritable

	for i, pos := range index {
		if buf[pos] != '[' {
			continue
		}
		p := int(pos)

		switch {
		case keyPrecedes(buf, p, keyReadonly):
			view, ok := viewFromIndex(buf, index, skip, i)
			if !ok {
				continue
			}
			current = TxKeyViews{}
			current.Readonly = view
			state = expectWritable

		case state == expectWritable && keyPrecedes(buf, p, keyWritable):
			view, ok := viewFromIndex(buf, index, skip, i)
			if !ok {
				continue
			}
			current.Writable = view
			state = expectPostToken

		case state == expectPostToken && keyPrecedes(buf, p, keyPostToken):
			view, ok := viewFromIndex(buf, index, skip, i)
			if !ok {
				continue
			}
			current.PostTokenBalances = view
			state = expectPreToken

		case state == expectPreToken && keyPrecedes(buf, p, keyPreToken):
			view, ok := viewFromIndex(buf, index, skip, i)
			if !ok {
				continue
			}
			current.PreTokenBalances = view
			state = expectAccountKeys

		case state == expectAccountKeys && keyPrecedes(buf, p, keyAccountKeys):
			view, ok := viewFromIndex(buf, index, skip, i)
			if !ok {
				continue
			}
			current.AccountKeys = view
			if current.populated() {
				out = append(out, current)
			}
			state = expectWritable
		}
	}

	return out
}
