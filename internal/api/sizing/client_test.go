package sizing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/langchou/solarsizer/internal/equipment"
)

const sampleResponse = `{
	"intellectus_warnings": ["big load"],
	"main_results": {
		"potencia_pv_kWp": 0.28,
		"capacidade_banco_kwh": 3.0,
		"potencia_pico_carga_va": 1058.82,
		"energia_diaria_kwh": 1.2
	},
	"solutions": [
		{"inversor_modelo": "SUN2000-2KTL-L1", "inversor_potencia_va": 2000, "bateria_modelo": "LUNA2000", "bateria_quantidade": 1}
	]
}`

func newTestClient(url string, opts Options) *Client {
	return NewClient(url, opts, zap.NewNop())
}

func sampleRequest(t *testing.T) *Request {
	t.Helper()
	r := equipment.NewRegistry()
	r.Add()
	req, err := Build("fortaleza", "1", r)
	require.NoError(t, err)
	return req
}

func TestClientSubmit(t *testing.T) {
	t.Run("should post JSON to /calculate and decode the response", func(t *testing.T) {
		var gotBody map[string]interface{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/calculate", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			data, _ := io.ReadAll(r.Body)
			assert.NoError(t, json.Unmarshal(data, &gotBody))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(sampleResponse))
		}))
		defer srv.Close()

		c := newTestClient(srv.URL+"/", Options{})
		resp, err := c.Submit(context.Background(), sampleRequest(t))
		require.NoError(t, err)

		assert.Equal(t, "fortaleza", gotBody["regiao"])
		assert.Equal(t, []string{"big load"}, resp.Warnings)
		require.NotNil(t, resp.MainResults)
		assert.Equal(t, "1058.82", resp.MainResults.PeakLoadVA.String())
		assert.Equal(t, "3.0", resp.MainResults.BatteryCapacityKWh.String())
		require.Len(t, resp.Solutions, 1)
		assert.Equal(t, "SUN2000-2KTL-L1", resp.Solutions[0].InverterModel)
		assert.Equal(t, "1", resp.Solutions[0].BatteryQuantity.String())
	})

	t.Run("should return TransportError on non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL, Options{}).Submit(context.Background(), sampleRequest(t))

		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
		assert.Equal(t, MsgServerUnreachable, te.Message())
	})

	t.Run("should return TransportError on a non JSON body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>not json</html>"))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL, Options{}).Submit(context.Background(), sampleRequest(t))

		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "decode response", te.Op)
	})

	t.Run("should return MalformedResponseError on valid JSON of the wrong shape", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"main_results": {}, "solutions": "none"}`))
		}))
		defer srv.Close()

		c := newTestClient(srv.URL, Options{BreakerFailures: 1})
		_, err := c.Submit(context.Background(), sampleRequest(t))

		var me *MalformedResponseError
		require.ErrorAs(t, err, &me)
		assert.Equal(t, MsgMalformedResponse, me.Message())
		var te *TransportError
		assert.False(t, errors.As(err, &te))

		// 熔断器不因结构错误打开
		_, err = c.Submit(context.Background(), sampleRequest(t))
		assert.ErrorAs(t, err, &me)
	})

	t.Run("should return TransportError when the server is unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := newTestClient(url, Options{Timeout: time.Second}).Submit(context.Background(), sampleRequest(t))

		var te *TransportError
		assert.ErrorAs(t, err, &te)
	})

	t.Run("should not retry a failed exchange", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL, Options{}).Submit(context.Background(), sampleRequest(t))
		assert.Error(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("should fail fast once the breaker opens", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c := newTestClient(srv.URL, Options{BreakerFailures: 2, BreakerOpen: time.Minute})
		for i := 0; i < 2; i++ {
			_, err := c.Submit(context.Background(), sampleRequest(t))
			require.Error(t, err)
		}

		_, err := c.Submit(context.Background(), sampleRequest(t))
		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})
}

func TestClientWaitReady(t *testing.T) {
	t.Run("should succeed once the service answers", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		err := newTestClient(srv.URL, Options{}).WaitReady(context.Background(), 5*time.Second)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
	})

	t.Run("should give up after the deadline", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		err := newTestClient(srv.URL, Options{}).WaitReady(context.Background(), 300*time.Millisecond)
		assert.Error(t, err)
	})
}

func TestResponseValidate(t *testing.T) {
	decode := func(t *testing.T, body string) *Response {
		t.Helper()
		var r Response
		require.NoError(t, json.Unmarshal([]byte(body), &r))
		return &r
	}

	t.Run("should accept a complete response", func(t *testing.T) {
		assert.NoError(t, decode(t, sampleResponse).Validate())
	})

	t.Run("should accept empty solutions and missing warnings", func(t *testing.T) {
		r := decode(t, `{"main_results": {"potencia_pv_kWp": 1, "capacidade_banco_kwh": 2, "potencia_pico_carga_va": 3, "energia_diaria_kwh": 4}, "solutions": []}`)
		assert.NoError(t, r.Validate())
	})

	t.Run("should reject missing main_results", func(t *testing.T) {
		err := decode(t, `{"solutions": []}`).Validate()

		var me *MalformedResponseError
		require.ErrorAs(t, err, &me)
		assert.Contains(t, me.Fields, "main_results")
	})

	t.Run("should reject missing metrics and solution fields", func(t *testing.T) {
		r := decode(t, `{"main_results": {"potencia_pv_kWp": 1, "capacidade_banco_kwh": 2, "potencia_pico_carga_va": 3}, "solutions": [{"inversor_modelo": "X"}]}`)

		var me *MalformedResponseError
		require.ErrorAs(t, r.Validate(), &me)
		assert.Contains(t, me.Fields, "main_results.energia_diaria_kwh")
		assert.Contains(t, me.Fields, "solutions[0].bateria_modelo")
	})

	t.Run("should reject missing solutions", func(t *testing.T) {
		r := decode(t, `{"main_results": {"potencia_pv_kWp": 1, "capacidade_banco_kwh": 2, "potencia_pico_carga_va": 3, "energia_diaria_kwh": 4}}`)

		var me *MalformedResponseError
		require.ErrorAs(t, r.Validate(), &me)
		assert.Contains(t, me.Fields, "solutions")
	})
}
