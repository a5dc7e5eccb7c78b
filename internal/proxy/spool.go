/* *****************************************************************************
 * Nehonix XyPriss System CLI
 * (see transport.go for full license header)
 ***************************************************************************** */

package proxy

import (
	"bytes"
	"errors"
	"io"
	"os"
)

var errBodyTooLarge = errors.New("proxy: request body exceeds the configured hard cap")

// spoolBody buffers an inbound request body so it can be replayed onto the
// upstream once a lazily-started service becomes ready, without holding
// arbitrarily large bodies in memory. Bodies up to spoolMemThreshold stay in
// memory; beyond that they spill to a temp file; beyond spoolHardCap the
// request is rejected outright (§4.6 item 1).
func spoolBody(body io.ReadCloser, contentLength int64) (io.ReadCloser, func(), error) {
	defer body.Close()

	if contentLength > spoolHardCap {
		return nil, func() {}, errBodyTooLarge
	}

	limited := io.LimitReader(body, spoolMemThreshold+1)
	buf, err := io.ReadAll(limited)
	if err != nil {
		return nil, func() {}, err
	}

	if len(buf) <= spoolMemThreshold {
		return io.NopCloser(bytes.NewReader(buf)), func() {}, nil
	}

	// Body is larger than the in-memory threshold: spill what we already
	// read plus the remainder of the original body to a temp file.
	tmp, err := os.CreateTemp("", "dynagate-body-*")
	if err != nil {
		return nil, func() {}, err
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	if _, err := tmp.Write(buf); err != nil {
		cleanup()
		return nil, func() {}, err
	}
	written := int64(len(buf))
	remaining := spoolHardCap - written
	n, err := io.Copy(tmp, io.LimitReader(body, remaining+1))
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	if n > remaining {
		cleanup()
		return nil, func() {}, errBodyTooLarge
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return tmp, cleanup, nil
}
