package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/bitshelter/filecatalog/pkg/browse"
	"github.com/bitshelter/filecatalog/pkg/metrics"
	"github.com/bitshelter/filecatalog/responses"
)

const sourceSocketServer = "socketserver"

// Socket speaks the line protocol "route:length{json...}" and answers
// with a length-prefixed reply envelope. Connections stay open between
// requests.
type Socket struct {
	l       *zap.Logger
	browser *browse.Browser
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// NewSocket returns a shiny new socket server
func NewSocket(l *zap.Logger, browser *browse.Browser) *Socket {
	inst := &Socket{
		l:       l.Named("socket"),
		browser: browser,
	}

	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (h *Socket) Serve(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				if !errors.Is(err, io.EOF) {
					h.l.Error("panic in handle connection", zap.Error(err))
				}
			} else {
				h.l.Error("panic in handle connection", zap.String("error", fmt.Sprint(r)))
			}
		}
	}()

	h.l.Debug("handling connection", zap.String("remote", conn.RemoteAddr().String()))
	metrics.NumSocketsGauge.WithLabelValues(conn.RemoteAddr().String()).Inc()
	defer metrics.NumSocketsGauge.WithLabelValues(conn.RemoteAddr().String()).Dec()

	var (
		headerBuffer [1]byte
		header       = ""
	)
	for {
		// read with 1 byte steps on conn until we find "{"
		_, readErr := conn.Read(headerBuffer[0:])
		if readErr != nil {
			h.l.Debug("looks like the client closed the connection", zap.Error(readErr))
			return
		}
		current := headerBuffer[0:]
		if string(current) != "{" {
			// adding to header byte by byte
			header += string(current)
			continue
		}

		// json has started
		route, jsonLength, headerErr := extractRouteAndJSONLength(header)
		header = ""
		if headerErr != nil {
			h.l.Error("invalid request could not read header", zap.Error(headerErr))
			encodedErr, encodingErr := encodeReply(h.l, responses.NewServerError("invalid header %s", headerErr))
			if encodingErr == nil {
				h.writeResponse(conn, encodedErr)
			} else {
				h.l.Error("could not respond to invalid request", zap.Error(encodingErr))
			}
			return
		}
		if jsonLength <= 0 {
			h.l.Error("can not read empty json")
			return
		}

		jsonBytes := make([]byte, jsonLength)
		// that is "{"
		jsonBytes[0] = 123
		jsonLengthCurrent := 1
		for jsonLengthCurrent < jsonLength {
			readLength, jsonReadErr := conn.Read(jsonBytes[jsonLengthCurrent:jsonLength])
			if jsonReadErr != nil {
				h.l.Error("could not read json - giving up with this client connection", zap.Error(jsonReadErr))
				return
			}
			jsonLengthCurrent += readLength
		}

		h.l.Debug("read json", zap.Int("length", len(jsonBytes)))

		reply, handlingErr := handleRequest(context.Background(), h.l, h.browser, route, jsonBytes, sourceSocketServer)
		if handlingErr != nil {
			h.l.Error("request handling failed", zap.Error(handlingErr))
		}
		h.writeResponse(conn, reply)
		// note: connection remains open
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func extractRouteAndJSONLength(header string) (Route, int, error) {
	headerParts := strings.Split(header, ":")
	if len(headerParts) != 2 {
		return "", 0, errors.New("invalid header")
	}
	jsonLength, err := strconv.Atoi(headerParts[1])
	if err != nil {
		return "", 0, fmt.Errorf("could not parse length in header: %q", header)
	}
	return Route(headerParts[0]), jsonLength, nil
}

func (h *Socket) writeResponse(conn net.Conn, reply []byte) {
	headerBytes := []byte(strconv.Itoa(len(reply)))
	reply = append(headerBytes, reply...)
	n, writeError := conn.Write(reply)
	if writeError != nil {
		h.l.Error("could not write reply", zap.Error(writeError))
		return
	}
	if n < len(reply) {
		h.l.Error("write too short",
			zap.Int("got", n),
			zap.Int("expected", len(reply)),
		)
		return
	}
	h.l.Debug("replied. waiting for next request on open connection")
}
