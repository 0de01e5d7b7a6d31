package sensor

import (
	"errors"
	"io"
	"sync"
)

// fakeConn answers every Tx with resp, or fails with err.
type fakeConn struct {
	mu     sync.Mutex
	resp   []byte
	err    error
	writes [][]byte
}

func (f *fakeConn) Tx(w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, append([]byte(nil), w...))
	if f.err != nil {
		return f.err
	}
	copy(r, f.resp)
	return nil
}

type closeCounter struct{ n int }

func (c *closeCounter) Close() error {
	c.n++
	return nil
}

// fakeOpener hands out conn, or fails while openErr is set.
type fakeOpener struct {
	conn    *fakeConn
	closer  closeCounter
	opens   int
	openErr error
}

func (o *fakeOpener) open() (Conn, io.Closer, error) {
	o.opens++
	if o.openErr != nil {
		return nil, nil, o.openErr
	}
	return o.conn, &o.closer, nil
}

var errBus = errors.New("remote I/O error")
