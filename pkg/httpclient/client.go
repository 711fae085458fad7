package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// DefaultTimeout はNewで生成したクライアントのタイムアウト。
const DefaultTimeout = 30 * time.Second

// DefaultMaxResponseBytes はNewで生成したクライアントが読み取るレスポンスボディの上限。
const DefaultMaxResponseBytes int64 = 10 << 20

// ErrResponseTooLarge はレスポンスボディが上限を超えた場合に返る。
var ErrResponseTooLarge = errors.New("response body too large")

// Client は外部API呼び出し用のHTTPクライアント。
// 全リクエストに付与する固定ヘッダーを持つ。生成後は変更しないため並行利用できる。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// header は全リクエストに付与するヘッダー。
	header http.Header
	// maxResponseBytes は読み取るレスポンスボディの上限。
	maxResponseBytes int64
}

// Option はClientの設定を変更する関数。
type Option func(*Client)

// WithHeader は全リクエストに付与するヘッダーを追加する。
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.header.Set(key, value)
	}
}

// WithTimeout はリクエストのタイムアウトを設定する。0の場合はタイムアウトしない。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithTransport は内部で使用するhttp.RoundTripperを差し替える。
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// WithMaxResponseBytes はレスポンスボディの上限を設定する。0以下の場合はDefaultMaxResponseBytesを使う。
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResponseBytes = n
		}
	}
}

// New は新しいHTTPクライアントを生成する。
// Content-Typeには常にapplication/jsonが設定される。
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		header:           http.Header{},
		maxResponseBytes: DefaultMaxResponseBytes,
	}
	c.header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response は外部APIのレスポンス。ボディは読み取り済み。
type Response struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// Body はレスポンスボディ。
	Body []byte
}

// OK はステータスコードが2xxかどうかを返す。
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DecodeJSON はレスポンスボディをvにデシリアライズする。
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.Wrapf(err, "failed to decode response body: status=%d", r.StatusCode)
	}
	return nil
}

// GetJSON は指定URLにGETリクエストを送信し、レスポンスボディをresultにデシリアライズする。
// ステータスコードに関わらずボディをデシリアライズし、ステータスコードを返す。
func (c *Client) GetJSON(ctx context.Context, url string, result any) (int, error) {
	resp, err := c.Do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, resp.DecodeJSON(result)
}

// PostJSON は指定URLにJSONボディでPOSTリクエストを送信し、
// レスポンスボディをresultにデシリアライズする。bodyがnilの場合はボディを送らない。
func (c *Client) PostJSON(ctx context.Context, url string, body any, result any) (int, error) {
	resp, err := c.Do(ctx, http.MethodPost, url, body)
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, resp.DecodeJSON(result)
}

// Do はJSON形式のHTTPリクエストを実行する共通処理。
// json.RawMessageはそのままのバイト列で送信する。
func (c *Client) Do(ctx context.Context, method, url string, body any) (*Response, error) {
	bodyReader, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	for key, values := range c.header {
		req.Header[key] = append([]string(nil), values...)
	}

	// コンテキストからリクエストIDを伝播する
	if requestID := requestIDFromContext(ctx); requestID != "" {
		req.Header.Set(HeaderRequestID, requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}
	if int64(len(respBody)) > c.maxResponseBytes {
		return nil, errors.Wrapf(ErrResponseTooLarge, "limit=%d bytes", c.maxResponseBytes)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
	}, nil
}

// encodeBody はリクエストボディをJSONにシリアライズする。
func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if b == nil {
			return nil, nil
		}
		return bytes.NewReader(b), nil
	default:
		jsonBody, err := json.Marshal(b)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode request body")
		}
		return bytes.NewReader(jsonBody), nil
	}
}

// HeaderRequestID はリクエストIDを伝播するためのHTTPヘッダーキー。
const HeaderRequestID = "X-Request-ID"

// contextKey はコンテキストキーの型。
type contextKey string

// contextKeyRequestID はコンテキストにリクエストIDを格納するためのキー。
const contextKeyRequestID contextKey = "request_id"

// WithRequestID はコンテキストにリクエストIDを設定する。
// 外部API呼び出し時にリクエストIDを伝播するために使用する。
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// requestIDFromContext はコンテキストに設定されたリクエストIDを返す。
func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}
