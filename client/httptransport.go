package client

import (
	"bytes"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/bitshelter/filecatalog/pkg/handler"
	"github.com/bitshelter/filecatalog/responses"
)

type httpTransport struct {
	client   *http.Client
	endpoint string
}

// newHTTPTransport will create a new http transport for the given endpoint and client.
// Caution: the provided endpoint url is not validated!
func newHTTPTransport(endpoint string, client *http.Client) transport {
	return &httpTransport{
		endpoint: endpoint,
		client:   client,
	}
}

func (ht *httpTransport) shutdown() {
	// nothing to do here
}

func (ht *httpTransport) call(route handler.Route, request interface{}, response interface{}) error {
	requestBytes, errMarshal := json.Marshal(request)
	if errMarshal != nil {
		return errMarshal
	}
	req, errNewRequest := http.NewRequest(
		http.MethodPost,
		ht.endpoint+"/"+string(route),
		bytes.NewBuffer(requestBytes),
	)
	if errNewRequest != nil {
		return errNewRequest
	}
	httpResponse, errDo := ht.client.Do(req)
	if errDo != nil {
		return errDo
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode != http.StatusOK {
		return errors.Errorf("non 200 reply: %d", httpResponse.StatusCode)
	}
	if httpResponse.Body == nil {
		return errors.New("empty response body")
	}
	responseBytes, errRead := io.ReadAll(httpResponse.Body)
	if errRead != nil {
		return errRead
	}
	return decodeReply(responseBytes, response)
}

// decodeReply unwraps the reply envelope. A reply carrying an error
// code is surfaced as a *responses.Error.
func decodeReply(data []byte, response interface{}) error {
	var envelope struct {
		Reply jsoniter.RawMessage `json:"reply"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return errors.Wrap(err, "failed to decode reply envelope")
	}

	responseErr := &responses.Error{}
	if err := json.Unmarshal(envelope.Reply, responseErr); err == nil && responseErr.Code != "" {
		return responseErr
	}

	return json.Unmarshal(envelope.Reply, response)
}
