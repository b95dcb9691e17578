package core

import "testing"

func indexAndSkip(t *testing.T, payload string) ([]byte, []uint32, []int) {
	t.Helper()
	buf := make([]byte, len(payload)+32)
	copy(buf, payload)
	idx := BuildStructuralIndex(buf)
	skip := BuildSkipMap(idx, buf)
	return buf, idx, skip
}

func TestFindTransactionViewsSingleTransaction(t *testing.T) {
	payload := `{"readonly":[],"writable":[],` +
		`"postTokenBalances":[1],"preTokenBalances":[2],"accountKeys":["AAA"]}`
	buf, idx, skip := indexAndSkip(t, payload)

	txs := FindTransactionViews(buf, idx, skip)
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	tx := txs[0]
	if string(tx.PostTokenBalances) != "[1]" {
		t.Fatalf("unexpected postTokenBalances view: %q", tx.PostTokenBalances)
	}
	if string(tx.PreTokenBalances) != "[2]" {
		t.Fatalf("unexpected preTokenBalances view: %q", tx.PreTokenBalances)
	}
	if string(tx.AccountKeys) != `["AAA"]` {
		t.Fatalf("unexpected accountKeys view: %q", tx.AccountKeys)
	}
}

func TestFindTransactionViewsMultipleTransactions(t *testing.T) {
	payload := `{"readonly":[],"writable":[],"postTokenBalances":[1],"preTokenBalances":[2],"accountKeys":["AAA"]},` +
		`{"readonly":[],"writable":[],"postTokenBalances":[3],"preTokenBalances":[4],"accountKeys":["BBB"]}`
	buf, idx, skip := indexAndSkip(t, payload)

	txs := FindTransactionViews(buf, idx, skip)
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if string(txs[0].AccountKeys) != `["AAA"]` || string(txs[1].AccountKeys) != `["BBB"]` {
		t.Fatalf("unexpected account keys: %q, %q", txs[0].AccountKeys, txs[1].AccountKeys)
	}
}

// TestFindTransactionViewsReadonlyAlwaysResets checks that a second
// "readonly" key discards a partially-built transaction rather than
// merging into it.
func TestFindTransactionViewsReadonlyAlwaysResets(t *testing.T) {
	payload := `{"readonly":[9],"writable":[8],` +
		`"readonly":[],"writable":[],"postTokenBalances":[1],"preTokenBalances":[2],"accountKeys":["AAA"]}`
	buf, idx, skip := indexAndSkip(t, payload)

	txs := FindTransactionViews(buf, idx, skip)
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	if string(txs[0].Readonly) != "[]" {
		t.Fatalf("expected the second readonly to have reset the transaction, got %q", txs[0].Readonly)
	}
}

// TestFindTransactionViewsOutOfOrderKeyIgnored checks that a key seen
// while the machine expects a different key is ignored: the early
// accountKeys array is skipped and the transaction completes with the
// later, in-order accountKeys array.
func TestFindTransactionViewsOutOfOrderKeyIgnored(t *testing.T) {
	payload := `{"readonly":[],"accountKeys":["early"],"writable":[],` +
		`"postTokenBalances":[1],"preTokenBalances":[2],"accountKeys":["AAA"]}`
	buf, idx, skip := indexAndSkip(t, payload)

	txs := FindTransactionViews(buf, idx, skip)
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	if string(txs[0].AccountKeys) != `["AAA"]` {
		t.Fatalf("expected the out-of-order accountKeys to be ignored, got %q", txs[0].AccountKeys)
	}
}

// TestFindTransactionViewsUnclosedArrayDoesNotPanic is a regression
// test: a key whose array never closes leaves its bracket unmatched in
// the skip-map (skip[i] <= i, the zero-initialized sentinel). Building
// a view from it must be silently skipped, never panic on a reversed
// slice range.
func TestFindTransactionViewsUnclosedArrayDoesNotPanic(t *testing.T) {
	payload := `{"readonly":[],"writable":[],"postTokenBalances":[1],"preTokenBalances":[2],"accountKeys":[`
	buf, idx, skip := indexAndSkip(t, payload)

	txs := FindTransactionViews(buf, idx, skip)
	if len(txs) != 0 {
		t.Fatalf("expected no completed transactions for a truncated payload, got %d", len(txs))
	}
}

// TestFindTransactionViewsUnclosedMidSequenceDoesNotPanic covers an
// unclosed array earlier in the fixed key sequence, not just the last
// key.
func TestFindTransactionViewsUnclosedMidSequenceDoesNotPanic(t *testing.T) {
	payload := `{"readonly":[],"writable":[],"postTokenBalances":[` +
		`"preTokenBalances":[2],"accountKeys":["AAA"]}`
	buf, idx, skip := indexAndSkip(t, payload)

	txs := FindTransactionViews(buf, idx, skip)
	if len(txs) != 0 {
		t.Fatalf("expected no completed transactions when an inner array never closes, got %d", len(txs))
	}
}

func TestFindTransactionViewsIncompletePartialDropped(t *testing.T) {
	payload := `{"readonly":[],"writable":[],"postTokenBalances":[1]}`
	buf, idx, skip := indexAndSkip(t, payload)

	txs := FindTransactionViews(buf, idx, skip)
	if len(txs) != 0 {
		t.Fatalf("expected a partial transaction missing trailing keys to be dropped, got %d", len(txs))
	}
}
