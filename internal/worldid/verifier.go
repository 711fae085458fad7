package worldid

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nao1215/inchrelay/pkg/apperror"
	"github.com/nao1215/inchrelay/pkg/httpclient"
)

// DefaultBaseURL はWorldID開発者APIのベースURL。
const DefaultBaseURL = "https://developer.worldcoin.org"

// actionField は証明に付与するアクションIDのフィールド名。
const actionField = "action"

// Proof はクライアントから受け取った証明オブジェクト。
// 各フィールドの値は受け取ったJSONのまま保持する。
type Proof map[string]json.RawMessage

// verifyResponse は検証APIが2xxで返すボディ。
type verifyResponse struct {
	Verified bool `json:"verified"`
}

// errorResponse は検証APIが非2xxで返すボディ。
// codeとdetailは文字列とは限らないため、受け取ったJSONのまま保持する。
type errorResponse struct {
	Code   json.RawMessage `json:"code"`
	Detail json.RawMessage `json:"detail"`
}

// templateString はJSONの値をJavaScriptのテンプレートリテラルに埋め込んだときの文字列にする。
// 値が無い場合は"undefined"、文字列は引用符なし、オブジェクトは"[object Object]"になる。
func templateString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "undefined"
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	case '{':
		return "[object Object]"
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err == nil {
			parts := make([]string, len(elems))
			for i, elem := range elems {
				// 配列の結合ではnullは空文字になる
				if string(bytes.TrimSpace(elem)) != "null" {
					parts[i] = templateString(elem)
				}
			}
			return strings.Join(parts, ",")
		}
	case 't', 'f', 'n':
		return string(raw)
	default:
		if f, err := strconv.ParseFloat(string(raw), 64); err == nil {
			return formatNumber(f)
		}
	}
	return string(raw)
}

// formatNumber は数値をJavaScriptのNumberの文字列表現に近い形式にする。
func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	s = strings.Replace(s, "e-0", "e-", 1)
	return strings.Replace(s, "e+0", "e+", 1)
}

// Verifier は証明を検証APIに転送する。
type Verifier struct {
	// client は検証API用のHTTPクライアント。
	client *httpclient.Client
	// endpoint はアプリケーションIDを埋め込んだ検証APIのURL。
	endpoint string
	// action は証明に付与するアクションID。
	action string
}

// NewVerifier は新しいVerifierを生成する。baseURLが空の場合はDefaultBaseURLを使う。
func NewVerifier(client *httpclient.Client, baseURL, appID, action string) *Verifier {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Verifier{
		client:   client,
		endpoint: baseURL + "/api/v1/verify/" + url.PathEscape(appID),
		action:   action,
	}
}

// VerifyProof は証明にアクションIDを付与して検証APIに送信し、verifiedの値を返す。
// 検証APIが非2xxを返した場合は、code と detail を持つapperror.KindUpstreamのエラーを返す。
// proofは変更しない。
func (v *Verifier) VerifyProof(ctx context.Context, proof Proof) (bool, error) {
	action, err := json.Marshal(v.action)
	if err != nil {
		return false, apperror.Internal(err, "failed to encode action")
	}

	body := make(Proof, len(proof)+1)
	for k, val := range proof {
		body[k] = val
	}
	body[actionField] = action

	resp, err := v.client.Do(ctx, http.MethodPost, v.endpoint, body)
	if err != nil {
		return false, apperror.Internal(err, "failed to call verification endpoint")
	}

	if !resp.OK() {
		var e errorResponse
		if err := resp.DecodeJSON(&e); err != nil {
			return false, apperror.Internal(err, "failed to parse verification error response")
		}
		return false, errors.WithStack(apperror.Upstream(templateString(e.Code), templateString(e.Detail)))
	}

	var result verifyResponse
	if err := resp.DecodeJSON(&result); err != nil {
		return false, apperror.Internal(err, "failed to parse verification response")
	}
	return result.Verified, nil
}
