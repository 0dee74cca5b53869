package client

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/d2verb/difyctl/internal/protocol"
)

func response(status int, body string) *rawResponse {
	return &rawResponse{method: http.MethodGet, path: "plugin/t1/management/list", statusCode: status, body: []byte(body)}
}

func TestUnwrap(t *testing.T) {
	t.Run("returns data on success", func(t *testing.T) {
		got, err := unwrap[protocol.PluginListResponse](response(200,
			`{"code":0,"message":"success","data":{"list":[{"plugin_id":"org/a","version":"1.0.0"}],"total":7}}`), nil)

		if err != nil {
			t.Fatalf("unwrap() error = %v", err)
		}
		if got.Total != 7 || len(got.List) != 1 || got.List[0].PluginID != "org/a" {
			t.Errorf("unwrap() = %+v", got)
		}
	})

	t.Run("transformer keeps large integers exact", func(t *testing.T) {
		identity := func(doc any) (any, error) { return doc, nil }

		got, err := unwrap[struct {
			Default int64 `json:"default"`
		}](response(200, `{"code":0,"message":"success","data":{"default":9007199254740993}}`), identity)

		if err != nil {
			t.Fatalf("unwrap() error = %v", err)
		}
		if got.Default != 9007199254740993 {
			t.Errorf("Default = %d, want 9007199254740993", got.Default)
		}
	})

	t.Run("transformer rejects trailing data", func(t *testing.T) {
		identity := func(doc any) (any, error) { return doc, nil }

		_, err := unwrap[bool](response(200, `{"code":0,"message":"success","data":true} x`), identity)

		if !IsProtocol(err) {
			t.Errorf("unwrap() error = %v, want protocol error", err)
		}
	})

	t.Run("false is valid data", func(t *testing.T) {
		got, err := unwrap[bool](response(200, `{"code":0,"message":"success","data":false}`), nil)

		if err != nil {
			t.Fatalf("unwrap() error = %v", err)
		}
		if got {
			t.Error("unwrap() = true, want false")
		}
	})

	t.Run("status checked before envelope", func(t *testing.T) {
		_, err := unwrap[bool](response(404, `not json`), nil)

		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("unwrap() error = %v, want *StatusError", err)
		}
		if se.StatusCode != 404 || se.Path != "plugin/t1/management/list" {
			t.Errorf("StatusError = %+v", se)
		}
	})

	t.Run("malformed envelope names target and path", func(t *testing.T) {
		_, err := unwrap[protocol.PluginListResponse](response(200, `{"data":{}}`), nil)

		if !IsProtocol(err) {
			t.Fatalf("unwrap() error = %v, want protocol error", err)
		}
		msg := err.Error()
		if !strings.Contains(msg, "PluginListResponse") || !strings.Contains(msg, "plugin/t1/management/list") {
			t.Errorf("error %q should name target and path", msg)
		}
	})

	t.Run("not json", func(t *testing.T) {
		_, err := unwrap[bool](response(200, `<html>`), nil)

		if !IsProtocol(err) {
			t.Errorf("unwrap() error = %v, want protocol error", err)
		}
	})

	t.Run("empty data on success", func(t *testing.T) {
		for _, body := range []string{
			`{"code":0,"message":"success"}`,
			`{"code":0,"message":"success","data":null}`,
		} {
			_, err := unwrap[bool](response(200, body), nil)

			if !IsProtocol(err) || !strings.Contains(err.Error(), "empty data") {
				t.Errorf("unwrap(%s) error = %v, want empty data protocol error", body, err)
			}
		}
	})

	t.Run("data of wrong shape", func(t *testing.T) {
		_, err := unwrap[[]bool](response(200, `{"code":0,"message":"success","data":{"x":1}}`), nil)

		if !IsProtocol(err) {
			t.Errorf("unwrap() error = %v, want protocol error", err)
		}
	})

	t.Run("structured error dispatched", func(t *testing.T) {
		_, err := unwrap[bool](response(200,
			`{"code":-500,"message":"{\"error_type\":\"PluginNotFoundError\",\"message\":\"plugin not found\"}"}`), nil)

		if !errors.Is(err, ErrPluginNotFound) {
			t.Fatalf("unwrap() error = %v, want plugin not found", err)
		}
		if err.Error() != "plugin not found" {
			t.Errorf("Error() = %q, want %q", err.Error(), "plugin not found")
		}
	})

	t.Run("plain message carries code", func(t *testing.T) {
		_, err := unwrap[bool](response(200, `{"code":42,"message":"quota exceeded"}`), nil)

		var de *DaemonError
		if !errors.As(err, &de) {
			t.Fatalf("unwrap() error = %v, want *DaemonError", err)
		}
		if de.Kind != KindUnknown || de.Code != 42 || de.Message != "quota exceeded" {
			t.Errorf("DaemonError = %+v", de)
		}
	})

	t.Run("non-zero code fails even with data", func(t *testing.T) {
		_, err := unwrap[bool](response(200, `{"code":1,"message":"nope","data":true}`), nil)

		if err == nil {
			t.Fatal("unwrap() error = nil, want error")
		}
	})

	t.Run("transformer reshapes before decoding", func(t *testing.T) {
		transform := func(doc any) (any, error) {
			doc.(map[string]any)["data"] = []any{true, false}
			return doc, nil
		}

		got, err := unwrap[[]bool](response(200, `{"code":0,"message":"success","data":"raw"}`), transform)

		if err != nil {
			t.Fatalf("unwrap() error = %v", err)
		}
		if !reflect.DeepEqual(got, []bool{true, false}) {
			t.Errorf("unwrap() = %v, want [true false]", got)
		}
	})

	t.Run("transformer failure is a parse failure", func(t *testing.T) {
		transform := func(doc any) (any, error) {
			return nil, errors.New("bad shape")
		}

		_, err := unwrap[bool](response(200, `{"code":0,"message":"success","data":true}`), transform)

		if !IsProtocol(err) {
			t.Errorf("unwrap() error = %v, want protocol error", err)
		}
	})
}

func TestDecodeStreamLine(t *testing.T) {
	const path = "plugin/t1/dispatch/tool/invoke"

	t.Run("non-envelope line with error field", func(t *testing.T) {
		_, err := decodeStreamLine[protocol.ToolInvokeMessage](`{"error":"tool crashed"}`, path)

		var pe *ProtocolError
		if !errors.As(err, &pe) {
			t.Fatalf("error = %v, want *ProtocolError", err)
		}
		if pe.Message != "tool crashed" {
			t.Errorf("Message = %q, want %q", pe.Message, "tool crashed")
		}
	})

	t.Run("line that is not json", func(t *testing.T) {
		_, err := decodeStreamLine[protocol.ToolInvokeMessage](`event: ping`, path)

		var pe *ProtocolError
		if !errors.As(err, &pe) {
			t.Fatalf("error = %v, want *ProtocolError", err)
		}
		if pe.Message != "event: ping" {
			t.Errorf("Message = %q, want raw line", pe.Message)
		}
	})

	t.Run("unstructured inner error", func(t *testing.T) {
		_, err := decodeStreamLine[protocol.ToolInvokeMessage](`{"code":-500,"message":"runtime died"}`, path)

		var de *DaemonError
		if !errors.As(err, &de) {
			t.Fatalf("error = %v, want *DaemonError", err)
		}
		if de.Kind != KindInner || de.Code != -500 || de.Message != "runtime died" {
			t.Errorf("DaemonError = %+v", de)
		}
	})

	t.Run("structured inner error propagates", func(t *testing.T) {
		_, err := decodeStreamLine[protocol.ToolInvokeMessage](
			`{"code":-500,"message":"{\"error_type\":\"PluginDaemonInnerError\",\"message\":\"boom\"}"}`, path)

		if !errors.Is(err, ErrInner) {
			t.Errorf("error = %v, want inner error", err)
		}
	})

	t.Run("structured tool error propagates", func(t *testing.T) {
		_, err := decodeStreamLine[protocol.ToolInvokeMessage](
			`{"code":-500,"message":"{\"error_type\":\"PluginInvokeError\",\"message\":\"bad input\"}"}`, path)

		if !errors.Is(err, ErrToolInvoke) {
			t.Errorf("error = %v, want tool invoke error", err)
		}
	})

	t.Run("other code", func(t *testing.T) {
		_, err := decodeStreamLine[protocol.ToolInvokeMessage](`{"code":3,"message":"slow down"}`, path)

		var de *DaemonError
		if !errors.As(err, &de) || de.Kind != KindUnknown || de.Code != 3 {
			t.Errorf("error = %v, want unknown daemon error with code 3", err)
		}
	})

	t.Run("empty data", func(t *testing.T) {
		_, err := decodeStreamLine[protocol.ToolInvokeMessage](`{"code":0,"message":"ok"}`, path)

		if !IsProtocol(err) {
			t.Errorf("error = %v, want protocol error", err)
		}
	})
}
