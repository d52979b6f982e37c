package base

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// handshakeRequestID is reserved for the credential handshake. Regular requests
// start at 1.
const handshakeRequestID = 0

// writeFrame writes a frame to the connection with the format:
// - 8 bytes: shardId (uint64, big endian)
// - 8 bytes: requestID (uint64, big endian)
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
func writeFrame(conn net.Conn, shardID uint64, requestID uint64, data []byte) error {
	header := make([]byte, 20)
	binary.BigEndian.PutUint64(header[:8], shardID)
	binary.BigEndian.PutUint64(header[8:16], requestID)
	binary.BigEndian.PutUint32(header[16:20], uint32(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads a frame from the connection using the provided buffer
// If the buffer is too small, it will allocate a new temporary buffer for the data
func readFrame(conn net.Conn, buf []byte) (uint64, uint64, []byte, error) {
	if len(buf) < 20 {
		buf = make([]byte, 20)
	}

	if _, err := io.ReadFull(conn, buf[:20]); err != nil {
		return 0, 0, nil, err
	}

	shardID := binary.BigEndian.Uint64(buf[:8])
	requestID := binary.BigEndian.Uint64(buf[8:16])
	contentLength := binary.BigEndian.Uint32(buf[16:20])

	if contentLength == 0 {
		return shardID, requestID, []byte{}, nil
	}

	if len(buf) < int(contentLength) {
		buf = make([]byte, contentLength)
	}

	if _, err := io.ReadFull(conn, buf[:contentLength]); err != nil {
		return 0, 0, nil, err
	}

	return shardID, requestID, buf[:contentLength], nil
}

// --------------------------------------------------------------------------
// Credential handshake
// --------------------------------------------------------------------------

// encodeCredentials encodes username and password as
// - 2 bytes: username length (uint16, big endian)
// - N bytes: username
// - M bytes: password (rest of the payload)
func encodeCredentials(username, password string) []byte {
	b := make([]byte, 0, 2+len(username)+len(password))
	b = binary.BigEndian.AppendUint16(b, uint16(len(username)))
	b = append(b, username...)
	return append(b, password...)
}

// decodeCredentials is the inverse of encodeCredentials
func decodeCredentials(b []byte) (username, password string, err error) {
	if len(b) < 2 {
		return "", "", fmt.Errorf("handshake too short")
	}
	n := int(binary.BigEndian.Uint16(b[:2]))
	if len(b) < 2+n {
		return "", "", fmt.Errorf("handshake too short for username")
	}
	return string(b[2 : 2+n]), string(b[2+n:]), nil
}

// clientHandshake authenticates a freshly opened connection. The server answers
// with an empty payload on success and an error message otherwise.
func clientHandshake(conn net.Conn, username, password string) error {
	if err := writeFrame(conn, 0, handshakeRequestID, encodeCredentials(username, password)); err != nil {
		return fmt.Errorf("failed to send credentials: %w", err)
	}

	_, requestID, data, err := readFrame(conn, nil)
	if err != nil {
		return fmt.Errorf("failed to read handshake response: %w", err)
	}
	if requestID != handshakeRequestID {
		return fmt.Errorf("unexpected handshake response for request %d", requestID)
	}
	if len(data) > 0 {
		return fmt.Errorf("authentication rejected: %s", data)
	}
	return nil
}
