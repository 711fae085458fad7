package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/nao1215/inchrelay/internal/monitor"
	"github.com/nao1215/inchrelay/internal/worldid"
	"github.com/nao1215/inchrelay/pkg/apperror"
	"github.com/nao1215/inchrelay/pkg/middleware"
)

// クライアントに返すメッセージ。
const (
	msgFetchFailed   = "Error occurred while fetching data: "
	msgProofVerified = "Proof verified successfully"
	msgInvalidProof  = "Invalid proof"
	msgBodyTooLarge  = "Request body too large"
)

// relayRequest はPOSTリレーのリクエストボディ。
type relayRequest struct {
	// Data は転送先にJSONとして送るボディ。省略された場合はボディを送らない。
	Data json.RawMessage `json:"data"`
}

// verifyResponse は証明検証エンドポイントのレスポンス。
type verifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// upstreamContext は外部API呼び出しに使うコンテキストを返す。
// クライアントが切断しても外部API呼び出しは完了または失敗まで続ける。
// 値（リクエストID）は引き継ぐ。
func upstreamContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// handleRelayGet は検証済みURLへGETリクエストを転送するハンドラを返す。
// 転送先のステータスコードに関わらず、JSONボディを200でそのまま返す。
func (s *Server) handleRelayGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		url := targetURL(c)

		var body json.RawMessage
		status, err := s.oneInch.GetJSON(upstreamContext(c), url, &body)
		if err != nil {
			s.relayFailed(c, url, err)
			return
		}

		s.logger.Debug().
			Str("request_id", middleware.GetRequestID(c)).
			Str("url", url).
			Int("upstream_status", status).
			Msg("relayed GET")
		c.Data(http.StatusOK, gin.MIMEJSON+"; charset=utf-8", body)
	}
}

// handleRelayPost は検証済みURLへPOSTリクエストを転送するハンドラを返す。
// リクエストボディのdataフィールドをJSONとして転送する。
func (s *Server) handleRelayPost() gin.HandlerFunc {
	return func(c *gin.Context) {
		url := targetURL(c)

		var req relayRequest
		if err := s.readJSONBody(c, &req, "Invalid JSON body"); err != nil {
			writeText(c, apperror.StatusCode(err), err.Error())
			return
		}

		var body json.RawMessage
		status, err := s.oneInch.PostJSON(upstreamContext(c), url, req.Data, &body)
		if err != nil {
			s.relayFailed(c, url, err)
			return
		}

		s.logger.Debug().
			Str("request_id", middleware.GetRequestID(c)).
			Str("url", url).
			Int("upstream_status", status).
			Msg("relayed POST")
		c.Data(http.StatusOK, gin.MIMEJSON+"; charset=utf-8", body)
	}
}

// relayFailed はリレーの失敗を500で返す。
func (s *Server) relayFailed(c *gin.Context, url string, err error) {
	_ = c.Error(err)
	s.logger.Error().
		Err(err).
		Str("request_id", middleware.GetRequestID(c)).
		Str("url", url).
		Msg("relay failed")
	writeText(c, http.StatusInternalServerError, msgFetchFailed+err.Error())
}

// handleVerifyProof はWorldIDの証明を検証するハンドラを返す。
func (s *Server) handleVerifyProof() gin.HandlerFunc {
	return func(c *gin.Context) {
		var proof worldid.Proof
		if err := s.readJSONBody(c, &proof, "Invalid proof payload"); err != nil {
			c.JSON(apperror.StatusCode(err), verifyResponse{Success: false, Message: err.Error()})
			return
		}

		s.logger.Info().
			Str("request_id", middleware.GetRequestID(c)).
			Interface("proof", proof).
			Msg("proof")

		verified, err := s.verifier.VerifyProof(upstreamContext(c), proof)
		if err != nil {
			s.metrics.ObserveVerification(monitor.VerificationError)
			_ = c.Error(err)
			level := zerolog.ErrorLevel
			if apperror.Is(err, apperror.KindUpstream) {
				level = zerolog.WarnLevel
			}
			s.logger.WithLevel(level).
				Err(err).
				Str("request_id", middleware.GetRequestID(c)).
				Msg("proof verification failed")
			c.JSON(http.StatusInternalServerError, verifyResponse{Success: false, Message: err.Error()})
			return
		}

		if !verified {
			s.metrics.ObserveVerification(monitor.VerificationRejected)
			c.JSON(http.StatusBadRequest, verifyResponse{Success: false, Message: msgInvalidProof})
			return
		}

		s.metrics.ObserveVerification(monitor.VerificationVerified)
		c.JSON(http.StatusOK, verifyResponse{Success: true, Message: msgProofVerified})
	}
}

// readJSONBody はリクエストボディをvにデシリアライズする。
// ボディが空の場合は何もしない。上限を超えた場合はapperror.KindTooLarge、
// JSONとして不正な場合はmsgを付けたapperror.KindBadRequestのエラーを返す。
func (s *Server) readJSONBody(c *gin.Context, v any, msg string) error {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.TooLarge(err, msgBodyTooLarge)
		}
		return apperror.Internal(err, "failed to read request body")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperror.BadRequest(msg + ": " + err.Error())
	}
	return nil
}
