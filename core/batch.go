package core

// flushBuilders converts builders into a RecordBatch, attaches the
// blockTime metadata, writes it to stream, and resets builders for
// reuse. A zero-row batch is never emitted.
func flushBuilders(builders *ColumnBuilders, blockTime string, stream BatchStream) error {
	if builders.Len() == 0 {
		return nil
	}

	batch := &RecordBatch{
		Wallet:    append([]string(nil), builders.Wallet...),
		Signature: append([]string(nil), builders.Signature...),
		Mint:      append([]string(nil), builders.Mint...),
		Pre:       append([]*string(nil), builders.Pre...),
		Post:      append([]*string(nil), builders.Post...),
		Metadata:  map[string]string{"timestamp": blockTime},
	}

	builders.Reset()

	return stream.Write(batch)
}
