package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/iabetor/pispeak/internal/history"
	"github.com/iabetor/pispeak/internal/logger"
	"github.com/iabetor/pispeak/internal/speak"
)

// maxBodyBytes 限制 /speak 请求体大小。
const maxBodyBytes = 1 << 20

type handler struct {
	speaker Speaker
	history HistoryStore
}

// Volume 保留原始 JSON，以区分省略（使用默认值）和显式 null（拒绝）。
type speakRequest struct {
	Text   *string         `json:"text"`
	Volume json.RawMessage `json:"volume"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

// speak 处理 POST /speak。
// 请求体格式错误返回 422；合成或播放失败统一返回 500，detail 为错误描述。
func (h *handler) speak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, detailResponse{Detail: "invalid request body: " + err.Error()})
		return
	}
	if req.Text == nil {
		writeJSON(w, http.StatusUnprocessableEntity, detailResponse{Detail: "field required: text"})
		return
	}
	volume, err := parseVolume(req.Volume)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, detailResponse{Detail: err.Error()})
		return
	}

	start := time.Now()
	res, err := h.speaker.Speak(r.Context(), *req.Text, volume)
	elapsed := time.Since(start)

	h.record(r, *req.Text, volume, res, err, elapsed)

	if err != nil {
		logger.Errorf("[api] 播报失败 (%s): %v", speak.KindOf(err), err)
		writeJSON(w, http.StatusInternalServerError, detailResponse{Detail: err.Error()})
		return
	}

	logger.Infof("[api] 播报完成: %d 个样本，合成 %v，播放 %v",
		res.Samples, res.Synthesis.Round(time.Millisecond), res.Playback.Round(time.Millisecond))
	writeJSON(w, http.StatusOK, statusResponse{Status: "success"})
}

// parseVolume 返回请求中的音量；字段缺省时为 DefaultVolume，null 或非数字时报错。
func parseVolume(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return speak.DefaultVolume, nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return 0, errors.New("volume must be a number, got null")
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("volume must be a number: %w", err)
	}
	return v, nil
}

// record 写入播报历史，失败只记日志。
func (h *handler) record(r *http.Request, text string, volume float64, res *speak.Result, err error, elapsed time.Duration) {
	if h.history == nil {
		return
	}
	e := &history.Entry{
		Text:       text,
		Volume:     volume,
		Engine:     h.speaker.EngineName(),
		Status:     history.StatusSuccess,
		DurationMs: elapsed.Milliseconds(),
	}
	if res != nil {
		e.Samples = res.Samples
		e.Clipped = res.Clipped
	}
	if err != nil {
		e.Detail = err.Error()
		e.Status = history.StatusEngineFailure
		if errors.Is(err, speak.ErrPlayback) {
			e.Status = history.StatusPlaybackFailure
		}
	}
	if recErr := h.history.Record(context.WithoutCancel(r.Context()), e); recErr != nil {
		logger.Warnf("[api] 记录播报历史失败: %v", recErr)
	}
}

// recent 处理 GET /history?limit=N。
func (h *handler) recent(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeJSON(w, http.StatusUnprocessableEntity, detailResponse{Detail: "limit must be an integer between 1 and 500"})
			return
		}
		limit = n
	}

	entries, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, detailResponse{Detail: err.Error()})
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "engine": h.speaker.EngineName()})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
