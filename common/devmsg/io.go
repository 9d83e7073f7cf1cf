package devmsg

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// Executes function f while blocking. Returns when f is completed or the context is cancelled.
func goWithContext(ctx context.Context, f func() error) error {
	ch := make(chan error, 1)

	go func() {
		defer close(ch)
		ch <- f()
	}()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WriteFrame writes an assembled frame to an io.Writer, usually a stream socket.
func WriteFrame(ctx context.Context, w io.Writer, frame []byte) error {
	err := goWithContext(ctx, func() error {
		_, err := bytes.NewBuffer(frame).WriteTo(w)
		return err
	})
	if err != nil {
		return fmt.Errorf("writing frame failed: %w", err)
	}
	return nil
}

// ReadFrame reads one complete frame from an io.Reader and returns its header and body.
func ReadFrame(ctx context.Context, r io.Reader) (Header, []byte, error) {
	bufHeader := make([]byte, HeaderLen)

	err := goWithContext(ctx, func() error {
		_, err := io.ReadFull(r, bufHeader)
		return err
	})
	if err != nil {
		return Header{}, nil, fmt.Errorf("reading frame header failed: %w", err)
	}

	msgLen, err := ExtractMsgLen(bufHeader)
	if err != nil {
		return Header{}, nil, fmt.Errorf("extracting msgLen failed: %w", err)
	}

	header, err := DisassembleHeader(bufHeader)
	if err != nil {
		return Header{}, nil, err
	}

	bufBody := make([]byte, msgLen-HeaderLen)
	err = goWithContext(ctx, func() error {
		_, err := io.ReadFull(r, bufBody)
		return err
	})
	if err != nil {
		return Header{}, nil, fmt.Errorf("reading frame body failed: %w", err)
	}

	return header, bufBody, nil
}
