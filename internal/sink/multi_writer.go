package sink

// MultiWriter fan-outs run records to multiple writers.
type MultiWriter struct {
	writers []RecordWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...RecordWriter) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// Add appends a writer.
func (mw *MultiWriter) Add(w RecordWriter) {
	mw.writers = append(mw.writers, w)
}

// Len returns the number of writers.
func (mw *MultiWriter) Len() int { return len(mw.writers) }

// Write sends a record to all writers.
func (mw *MultiWriter) Write(rec Record) error {
	for _, w := range mw.writers {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch sends multiple records to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(recs []Record) error {
	for _, w := range mw.writers {
		if err := WriteAll(w, recs); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every writer that has a Close method and returns the first error.
func (mw *MultiWriter) Close() error {
	var err error
	for _, w := range mw.writers {
		if c, ok := w.(interface{ Close() error }); ok {
			if e := c.Close(); e != nil && err == nil {
				err = e
			}
		}
	}
	return err
}
