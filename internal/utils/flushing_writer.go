package utils

import (
	"io"
	"sync"
)

// FlushingWriter forwards build output to a writer and flushes it after every write so that
// long-running compiler output reaches the console as it is produced.
type FlushingWriter struct {
	writer io.Writer
	mutex  sync.Mutex
}

// NewFlushingWriter wraps writer. Nil writers stay nil and already wrapped writers are returned unchanged.
func NewFlushingWriter(writer io.Writer) io.Writer {
	if writer == nil {
		return nil
	}
	if _, alreadyWrapped := writer.(*FlushingWriter); alreadyWrapped {
		return writer
	}
	return &FlushingWriter{writer: writer}
}

// Write delegates to the underlying writer and flushes it when it exposes Flush or Sync.
func (flushingWriter *FlushingWriter) Write(data []byte) (int, error) {
	if flushingWriter == nil || flushingWriter.writer == nil {
		return len(data), nil
	}

	flushingWriter.mutex.Lock()
	defer flushingWriter.mutex.Unlock()

	bytesWritten, writeError := flushingWriter.writer.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}

	switch flushable := flushingWriter.writer.(type) {
	case interface{ Flush() error }:
		if flushError := flushable.Flush(); flushError != nil {
			return bytesWritten, flushError
		}
	case interface{ Sync() error }:
		// Terminals reject Sync on some platforms; the bytes were already written.
		_ = flushable.Sync()
	}

	return bytesWritten, nil
}
