package relay

import (
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/inchrelay/pkg/apperror"
)

const (
	// TargetURLPrefix は転送先URLに要求する接頭辞。
	TargetURLPrefix = "https://api.1inch.dev"
	// targetHost は転送先URLに要求するホスト名。
	targetHost = "api.1inch.dev"
	// queryKeyURL は転送先URLを指定するクエリパラメータ名。
	queryKeyURL = "url"
	// contextKeyTargetURL は検証済みの転送先URLをGinコンテキストに格納するためのキー。
	contextKeyTargetURL = "target_url"
)

// クライアントに返す検証エラーのメッセージ。
const (
	msgMissingURL = "Include `url` in the query string or request body"
	msgBadPrefix  = "Base URL must start with " + TargetURLPrefix
)

// validateTargetURL は転送先URLを検証する。
// 接頭辞に加えて、パース結果のスキームがhttps、ホストがapi.1inch.dev、
// ユーザー情報を含まないことを要求する。
// "https://api.1inch.dev.evil.com" や "https://api.1inch.dev@evil.com" は接頭辞が一致しても拒否する。
func validateTargetURL(raw string) error {
	if raw == "" {
		return apperror.BadRequest(msgMissingURL)
	}
	if !strings.HasPrefix(raw, TargetURLPrefix) {
		return apperror.BadRequest(msgBadPrefix)
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.User != nil || u.Host != targetHost {
		return apperror.BadRequest(msgBadPrefix)
	}
	return nil
}

// requireTargetURL はクエリパラメータurlを検証するGinミドルウェアを返す。
// 検証に失敗した場合は400とプレーンテキストのメッセージを返し、ハンドラを実行しない。
// 成功した場合は検証済みのURLをコンテキストに設定する。
func requireTargetURL() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query(queryKeyURL)
		if err := validateTargetURL(raw); err != nil {
			writeText(c, apperror.StatusCode(err), err.Error())
			c.Abort()
			return
		}

		c.Set(contextKeyTargetURL, raw)
		c.Next()
	}
}

// targetURL はrequireTargetURLが検証した転送先URLを返す。
func targetURL(c *gin.Context) string {
	return c.GetString(contextKeyTargetURL)
}

// writeText はプレーンテキストのレスポンスを書き込む。
// メッセージは書式文字列として解釈しない。
func writeText(c *gin.Context, status int, msg string) {
	c.Data(status, "text/plain; charset=utf-8", []byte(msg))
}
