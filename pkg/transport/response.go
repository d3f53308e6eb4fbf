// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package transport

import (
	"bufio"
	"bytes"
	stderrors "errors"
	"io"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/openchami/pam-oidc/pkg/errors"
)

// DefaultMaxBodySize bounds the documents the client will buffer.
const DefaultMaxBodySize int64 = 1 << 20

// Response is the subset of an HTTP/1.1 response the resolver needs.
type Response struct {
	Proto      string
	StatusCode int
	Status     string
	// Header keys are canonicalized, so lookups through Get are case-insensitive.
	Header textproto.MIMEHeader
	Body   []byte
}

// ReadResponse reads a status line, the header block and a body framed by
// chunked transfer encoding, Content-Length or connection close.
func ReadResponse(r *bufio.Reader, maxBodySize int64) (*Response, error) {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	tp := textproto.NewReader(r)

	line, err := tp.ReadLine()
	if err != nil {
		return nil, framingError(err, "missing status line")
	}

	resp, err := parseStatusLine(line)
	if err != nil {
		return nil, err
	}

	header, err := tp.ReadMIMEHeader()
	if err != nil {
		return nil, framingError(err, "malformed header block")
	}
	resp.Header = header

	switch {
	case isChunked(header):
		resp.Body, err = decodeChunked(r, maxBodySize)
	case header.Get("Content-Length") != "":
		resp.Body, err = readContentLength(r, header.Get("Content-Length"), maxBodySize)
	default:
		resp.Body, err = readUntilClose(r, maxBodySize)
	}
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// DecodeChunked decodes a chunked transfer-encoded body up to and including
// the terminating zero-size chunk and its trailer section.
func DecodeChunked(r *bufio.Reader) ([]byte, error) {
	return decodeChunked(r, DefaultMaxBodySize)
}

func parseStatusLine(line string) (*Response, error) {
	proto, rest, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/1.") {
		return nil, errors.New(errors.ErrCodeProtocol, "malformed status line").
			WithDetails("status_line", line)
	}

	codeText, reason, _ := strings.Cut(strings.TrimLeft(rest, " "), " ")
	code, err := strconv.Atoi(codeText)
	if err != nil || len(codeText) != 3 {
		return nil, errors.New(errors.ErrCodeProtocol, "malformed status code").
			WithDetails("status_line", line)
	}

	return &Response{
		Proto:      proto,
		StatusCode: code,
		Status:     reason,
	}, nil
}

func isChunked(header textproto.MIMEHeader) bool {
	return strings.EqualFold(strings.TrimSpace(header.Get("Transfer-Encoding")), "chunked")
}

func decodeChunked(r *bufio.Reader, maxBodySize int64) ([]byte, error) {
	var body bytes.Buffer

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, framingError(err, "missing chunk size line")
		}

		sizeText, _, _ := strings.Cut(strings.TrimRight(line, "\r\n"), ";")
		sizeText = strings.TrimSpace(sizeText)
		if sizeText == "" {
			return nil, errors.New(errors.ErrCodeProtocol, "empty chunk size line")
		}

		size, err := strconv.ParseInt(sizeText, 16, 64)
		if err != nil || size < 0 {
			return nil, errors.New(errors.ErrCodeProtocol, "invalid chunk size").
				WithDetails("chunk_size", sizeText)
		}

		if size == 0 {
			if err := skipTrailers(r); err != nil {
				return nil, err
			}
			return body.Bytes(), nil
		}

		if size > maxBodySize-int64(body.Len()) {
			return nil, errors.New(errors.ErrCodeProtocol, "response body too large").
				WithDetails("limit", maxBodySize)
		}

		if _, err := io.CopyN(&body, r, size); err != nil {
			return nil, framingError(err, "truncated chunk")
		}

		terminator, err := r.ReadString('\n')
		if err != nil {
			return nil, framingError(err, "missing chunk terminator")
		}
		if strings.TrimRight(terminator, "\r\n") != "" {
			return nil, errors.New(errors.ErrCodeProtocol, "chunk longer than its declared size")
		}
	}
}

// skipTrailers consumes trailer fields up to the empty line ending the
// body. A peer that closes right after the last chunk is tolerated.
func skipTrailers(r *bufio.Reader) error {
	for {
		line, err := r.ReadString('\n')
		if err == io.EOF && line == "" {
			return nil
		}
		if err != nil {
			return framingError(err, "truncated trailer section")
		}
		if strings.TrimRight(line, "\r\n") == "" {
			return nil
		}
	}
}

func readContentLength(r *bufio.Reader, value string, maxBodySize int64) ([]byte, error) {
	length, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || length < 0 {
		return nil, errors.New(errors.ErrCodeProtocol, "invalid Content-Length").
			WithDetails("content_length", value)
	}
	if length > maxBodySize {
		return nil, errors.New(errors.ErrCodeProtocol, "response body too large").
			WithDetails("limit", maxBodySize)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, framingError(err, "body shorter than Content-Length")
	}
	return body, nil
}

func readUntilClose(r *bufio.Reader, maxBodySize int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxBodySize+1))
	if err != nil {
		return nil, framingError(err, "failed to read body")
	}
	if int64(len(body)) > maxBodySize {
		return nil, errors.New(errors.ErrCodeProtocol, "response body too large").
			WithDetails("limit", maxBodySize)
	}
	return body, nil
}

// framingError classifies a read failure: running out of bytes is a
// framing problem, anything else came from the connection.
func framingError(err error, message string) error {
	if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
		return errors.Wrap(err, errors.ErrCodeProtocol, message)
	}
	if isTimeout(err) {
		return errors.Wrap(err, errors.ErrCodeTimeout, message)
	}
	return errors.Wrap(err, errors.ErrCodeNetworkFailure, message)
}
