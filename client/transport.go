package client

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/bitshelter/filecatalog/pkg/handler"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type transport interface {
	call(route handler.Route, request interface{}, response interface{}) error
	shutdown()
}
