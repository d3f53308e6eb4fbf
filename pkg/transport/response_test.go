// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package transport

import (
	"bufio"
	"strings"
	"testing"

	"github.com/openchami/pam-oidc/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestDecodeChunked(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"two chunks", "4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n", "Wikipedia"},
		{"uppercase hex and extension", "A;name=value\r\n0123456789\r\n0\r\n\r\n", "0123456789"},
		{"trailer fields are skipped", "3\r\nabc\r\n0\r\nExpires: never\r\n\r\n", "abc"},
		{"bare newlines", "3\nabc\n0\n\n", "abc"},
		{"close after last chunk", "3\r\nabc\r\n0\r\n", "abc"},
		{"empty body", "0\r\n\r\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := DecodeChunked(reader(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(body))
		})
	}
}

func TestDecodeChunkedErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"missing size line", ""},
		{"empty size line", "\r\n"},
		{"non hex size", "zz\r\nabc\r\n0\r\n\r\n"},
		{"negative size", "-1\r\n"},
		{"truncated mid chunk", "4\r\nWi"},
		{"missing terminator", "4\r\nWiki"},
		{"chunk longer than declared", "2\r\nabc\r\n0\r\n\r\n"},
		{"stream ends before last chunk", "4\r\nWiki\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := DecodeChunked(reader(tt.in))
			require.Error(t, err)
			assert.Nil(t, body)
			assert.Equal(t, errors.ErrCodeProtocol, errors.GetErrorCode(err))
		})
	}
}

func TestDecodeChunkedBodyLimit(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"second chunk crosses limit", "4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n"},
		{"chunk size near int64 max", "1\r\na\r\n7fffffffffffffff\r\n" + strings.Repeat("x", 1<<16)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := reader(tt.in)
			_, err := decodeChunked(r, 6)
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeProtocol, errors.GetErrorCode(err))

			authErr, ok := errors.AsAuthError(err)
			require.True(t, ok)
			assert.EqualValues(t, 6, authErr.Details["limit"])
			// The oversized chunk is rejected before its data is read.
			assert.Greater(t, r.Buffered(), 0)
		})
	}
}

func TestReadResponse(t *testing.T) {
	t.Run("chunked", func(t *testing.T) {
		resp, err := ReadResponse(reader(
			"HTTP/1.1 200 OK\r\n"+
				"transfer-encoding: Chunked\r\n"+
				"Content-Type: application/json\r\n"+
				"\r\n"+
				"4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n"), 0)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, "OK", resp.Status)
		assert.Equal(t, "HTTP/1.1", resp.Proto)
		assert.Equal(t, "application/json", resp.Header.Get("content-type"))
		assert.Equal(t, "Wikipedia", string(resp.Body))
	})

	t.Run("content length stops at declared size", func(t *testing.T) {
		resp, err := ReadResponse(reader("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\n{}garbage"), 0)
		require.NoError(t, err)
		assert.Equal(t, "{}", string(resp.Body))
	})

	t.Run("read until close", func(t *testing.T) {
		resp, err := ReadResponse(reader("HTTP/1.0 404 Not Found\r\nConnection: close\r\n\r\nnothing here"), 0)
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
		assert.Equal(t, "Not Found", resp.Status)
		assert.Equal(t, "nothing here", string(resp.Body))
	})

	errorCases := []struct {
		name string
		in   string
	}{
		{"empty stream", ""},
		{"not http", "SSH-2.0-OpenSSH\r\n\r\n"},
		{"bad status code", "HTTP/1.1 2000 OK\r\n\r\n"},
		{"headers never end", "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n"},
		{"short content length", "HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\nabc"},
		{"bad content length", "HTTP/1.1 200 OK\r\nContent-Length: lots\r\n\r\nabc"},
		{"broken chunking", "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\nxyz\r\n"},
	}

	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadResponse(reader(tt.in), 0)
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeProtocol, errors.GetErrorCode(err))
		})
	}

	t.Run("body over limit", func(t *testing.T) {
		_, err := ReadResponse(reader("HTTP/1.1 200 OK\r\n\r\n0123456789"), 4)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeProtocol, errors.GetErrorCode(err))
	})
}
