package core

// Package core implements the per-block ingest pipeline: structural
// indexing, skip-map construction, transaction location, hot-pool
// filtering and balance aggregation, and columnar batch emission.

// TxKeyViews holds byte-slice views into the Raw Buffer for the five
// keyed arrays of a single transaction. All five must be populated for
// the transaction to be considered.
type TxKeyViews struct {
	Readonly          []byte
	Writable          []byte
	PostTokenBalances []byte
	PreTokenBalances  []byte
	AccountKeys       []byte
}

// populated reports whether every view has been filled in by the
// locator. A partial set is discarded rather than processed.
func (t TxKeyViews) populated() bool {
	return t.Readonly != nil && t.Writable != nil && t.PostTokenBalances != nil &&
		t.PreTokenBalances != nil && t.AccountKeys != nil
}

// BalancePair holds the pre/post uiAmountString text for one (owner,
// mint) pair within a single transaction. Empty means "not seen".
type BalancePair struct {
	Pre  string
	Post string
}

// OwnerMintMap is per-transaction scratch: owner key -> mint -> balances.
// It is cleared and reused by each worker goroutine between
// transactions rather than reallocated.
type OwnerMintMap map[string]map[string]*BalancePair

// get returns the BalancePair for (owner, mint), creating it on first
// use.
func (m OwnerMintMap) get(owner, mint string) *BalancePair {
	byMint, ok := m[owner]
	if !ok {
		byMint = make(map[string]*BalancePair)
		m[owner] = byMint
	}
	bp, ok := byMint[mint]
	if !ok {
		bp = &BalancePair{}
		byMint[mint] = bp
	}
	return bp
}

// ColumnBuilders accumulates the five output columns for one worker.
// pre/post are nullable: a nil entry means the row has no value on
// that side, emitted as a null column entry rather than an empty
// string.
type ColumnBuilders struct {
	Wallet    []string
	Signature []string
	Mint      []string
	Pre       []*string
	Post      []*string
}

// Len reports the number of rows currently buffered.
func (b *ColumnBuilders) Len() int {
	return len(b.Wallet)
}

// AppendRow appends one row. An empty pre or post string is stored as
// a null column entry, never as an empty string.
func (b *ColumnBuilders) AppendRow(wallet, signature, mint, pre, post string) {
	b.Wallet = append(b.Wallet, wallet)
	b.Signature = append(b.Signature, signature)
	b.Mint = append(b.Mint, mint)
	if pre == "" {
		b.Pre = append(b.Pre, nil)
	} else {
		v := pre
		b.Pre = append(b.Pre, &v)
	}
	if post == "" {
		b.Post = append(b.Post, nil)
	} else {
		v := post
		b.Post = append(b.Post, &v)
	}
}

// Reset clears the builders for reuse without reallocating the
// backing arrays.
func (b *ColumnBuilders) Reset() {
	b.Wallet = b.Wallet[:0]
	b.Signature = b.Signature[:0]
	b.Mint = b.Mint[:0]
	b.Pre = b.Pre[:0]
	b.Post = b.Post[:0]
}

// RecordBatch is a columnar batch handed to the sink: five equal
// length columns plus attached metadata (at least a "timestamp" key).
type RecordBatch struct {
	Wallet    []string
	Signature []string
	Mint      []string
	Pre       []*string
	Post      []*string
	Metadata  map[string]string
}

// NumRows returns the number of rows in the batch.
func (r *RecordBatch) NumRows() int {
	return len(r.Wallet)
}
