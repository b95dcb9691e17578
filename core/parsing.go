package core

import "bytes"

// parseStringArray extracts the quoted strings inside view, in
// order, using a simple `"..."` scanner with no escape processing.
// This is a deliberate simplification: the domain's account addresses
// and mints never contain embedded quotes.
func parseStringArray(view []byte) [][]byte {
	var out [][]byte
	pos := 0
	for pos < len(view) {
		start := bytes.IndexByte(view[pos:], '"')
		if start < 0 {
			break
		}
		start += pos
		end := bytes.IndexByte(view[start+1:], '"')
		if end < 0 {
			break
		}
		end += start + 1
		out = append(out, view[start+1:end])
		pos = end + 1
	}
	return out
}

var (
	tokBalAccountIndexKey = []byte(`"accountIndex":`)
	tokBalMintKey         = []byte(`"mint":"`)
	tokBalOwnerKey        = []byte(`"owner":"`)
	tokBalBalanceKey      = []byte(`"uiAmountString":"`)
)

// tokenBalanceObject is one decoded element of a preTokenBalances or
// postTokenBalances array.
type tokenBalanceObject struct {
	accountIndex int
	mint         []byte
	owner        []byte
	balance      []byte
}

// parseTokenBalanceObject scans forward from pos for the next
// token-balance object's fields in fixed order: accountIndex, mint,
// owner, uiAmountString. Fields missing after accountIndex are
// tolerated (they default to empty). It returns false once no further
// "accountIndex" key can be found.
//
// This is a position-stepping scanner, not a brace-aware parser: field
// ownership is disambiguated by checking that no earlier occurrence of
// the previous key lies between the previous field's value and the
// next one, an ad hoc bound check in lieu of tracking object braces.
// This mirrors the original scanner's rfind-based disambiguation
// exactly, including its failure modes on adversarial input; see the
// account-index/object-boundary design note in DESIGN.md.
func parseTokenBalanceObject(view []byte, pos int) (obj tokenBalanceObject, next int, ok bool) {
	indexStart := indexFrom(view, pos, tokBalAccountIndexKey)
	if indexStart < 0 {
		return obj, 0, false
	}
	indexValStart := indexStart + len(tokBalAccountIndexKey)
	indexValEnd := indexOfAny(view, indexValStart, ",}")
	if indexValEnd < 0 {
		return obj, 0, false
	}
	for i := indexValStart; i < indexValEnd; i++ {
		c := view[i]
		if c >= '0' && c <= '9' {
			obj.accountIndex = obj.accountIndex*10 + int(c-'0')
		}
	}

	mintStart := indexFrom(view, indexValEnd, tokBalMintKey)
	if mintStart < 0 {
		return obj, indexValEnd + 1, true
	}
	if lastIndexFrom(view, mintStart, tokBalAccountIndexKey) != indexStart {
		return obj, indexValEnd + 1, true
	}
	mintValStart := mintStart + len(tokBalMintKey)
	mintValEnd := bytesIndexByteFrom(view, mintValStart, '"')
	if mintValEnd < 0 {
		return obj, 0, false
	}
	obj.mint = view[mintValStart:mintValEnd]

	ownerStart := indexFrom(view, mintValEnd, tokBalOwnerKey)
	if ownerStart < 0 {
		return obj, mintValEnd + 1, true
	}
	if lastIndexFrom(view, ownerStart, tokBalMintKey) != mintStart {
		return obj, mintValEnd + 1, true
	}
	ownerValStart := ownerStart + len(tokBalOwnerKey)
	ownerValEnd := bytesIndexByteFrom(view, ownerValStart, '"')
	if ownerValEnd < 0 {
		return obj, 0, false
	}
	obj.owner = view[ownerValStart:ownerValEnd]

	balStart := indexFrom(view, ownerValEnd, tokBalBalanceKey)
	if balStart < 0 {
		return obj, ownerValEnd + 1, true
	}
	if lastIndexFrom(view, balStart, tokBalOwnerKey) != ownerStart {
		return obj, ownerValEnd + 1, true
	}
	balValStart := balStart + len(tokBalBalanceKey)
	balValEnd := bytesIndexByteFrom(view, balValStart, '"')
	if balValEnd < 0 {
		return obj, 0, false
	}
	obj.balance = view[balValStart:balValEnd]

	return obj, balValEnd + 1, true
}

// indexFrom finds the first occurrence of key at or after from,
// returning -1 on miss (mirrors string_view::find(key, pos)).
func indexFrom(view []byte, from int, key []byte) int {
	if from > len(view) {
		return -1
	}
	i := bytes.Index(view[from:], key)
	if i < 0 {
		return -1
	}
	return i + from
}

// lastIndexFrom finds the last occurrence of key starting no later
// than upTo, mirroring string_view::rfind(key, upTo): the search
// window is view[0:upTo+len(key)].
func lastIndexFrom(view []byte, upTo int, key []byte) int {
	limit := upTo + len(key)
	if limit > len(view) {
		limit = len(view)
	}
	if limit < 0 {
		return -1
	}
	i := bytes.LastIndex(view[:limit], key)
	return i
}

// bytesIndexByteFrom finds byte b at or after from, returning -1 on
// miss.
func bytesIndexByteFrom(view []byte, from int, b byte) int {
	if from > len(view) {
		return -1
	}
	i := bytes.IndexByte(view[from:], b)
	if i < 0 {
		return -1
	}
	return i + from
}

// indexOfAny finds the first occurrence at or after from of any byte
// in chars, returning -1 on miss.
func indexOfAny(view []byte, from int, chars string) int {
	if from > len(view) {
		return -1
	}
	i := bytes.IndexAny(view[from:], chars)
	if i < 0 {
		return -1
	}
	return i + from
}
