package handler

import (
	"context"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/bitshelter/filecatalog/pkg/browse"
	"github.com/bitshelter/filecatalog/pkg/metrics"
	"github.com/bitshelter/filecatalog/requests"
	"github.com/bitshelter/filecatalog/responses"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// handleRequest decodes one listing request, runs it on the browser and
// encodes the reply envelope. Shared by the http and socket front ends.
func handleRequest(ctx context.Context, l *zap.Logger, b *browse.Browser, route Route, jsonBytes []byte, source string) ([]byte, error) {
	start := time.Now()

	reply, requestErr := executeRequest(ctx, l, b, route, jsonBytes, source)
	replyBytes, encodeErr := encodeReply(l, reply)

	result := "success"
	if requestErr != nil || encodeErr != nil {
		result = "error"
	}
	metrics.ServiceRequestCounter.WithLabelValues(string(route), result, source).Inc()
	metrics.ServiceRequestDuration.WithLabelValues(string(route), result, source).Observe(time.Since(start).Seconds())

	return replyBytes, encodeErr
}

// executeRequest dispatches to the browser operation behind the route.
// Failures are folded into the reply: named response errors keep their
// code, anything else is reported as an internal error.
func executeRequest(ctx context.Context, l *zap.Logger, b *browse.Browser, route Route, jsonBytes []byte, source string) (interface{}, error) {
	var (
		reply             interface{}
		apiErr            error
		jsonErr           error
		processIfJSONIsOk = func(err error, processingFunc func()) {
			if err != nil {
				jsonErr = err
				return
			}
			processingFunc()
		}
	)
	metrics.ListingRequestCounter.WithLabelValues(source).Inc()

	// handle and process
	switch route {
	case RouteListFilesets:
		filesetsRequest := &requests.Filesets{}
		processIfJSONIsOk(json.Unmarshal(jsonBytes, &filesetsRequest), func() {
			reply, apiErr = b.ListFilesets(ctx, filesetsRequest)
		})
	case RouteListFolderContent:
		folderRequest := &requests.FolderContent{}
		processIfJSONIsOk(json.Unmarshal(jsonBytes, &folderRequest), func() {
			reply, apiErr = b.ListFolderContent(ctx, folderRequest)
		})
	case RouteListFileVersions:
		versionsRequest := &requests.FileVersions{}
		processIfJSONIsOk(json.Unmarshal(jsonBytes, &versionsRequest), func() {
			reply, apiErr = b.ListFileVersions(ctx, versionsRequest)
		})
	case RouteSearchEntries:
		searchRequest := &requests.Search{}
		processIfJSONIsOk(json.Unmarshal(jsonBytes, &searchRequest), func() {
			reply, apiErr = b.SearchEntries(ctx, searchRequest)
		})
	default:
		return responses.NewNotFound("unknown handler: %s", route), errors.New("unknown handler")
	}

	if jsonErr != nil {
		l.Error("could not read incoming json", zap.Error(jsonErr))
		return responses.NewServerError("could not read incoming json %s", jsonErr), jsonErr
	}
	if apiErr != nil {
		var responseErr *responses.Error
		if errors.As(apiErr, &responseErr) {
			l.Info("request failed", zap.String("code", responseErr.Code), zap.Error(apiErr))
			return responseErr, apiErr
		}
		l.Error("an API error occurred", zap.Error(apiErr))
		return responses.NewServerError("internal error %s", apiErr), apiErr
	}

	return reply, nil
}

// encodeReply takes an interface and encodes it as JSON
// it returns the resulting JSON and a marshalling error
func encodeReply(l *zap.Logger, reply interface{}) ([]byte, error) {
	bytes, err := json.Marshal(map[string]interface{}{
		"reply": reply,
	})
	if err != nil {
		l.Error("could not encode reply", zap.Error(err))
	}
	return bytes, err
}
