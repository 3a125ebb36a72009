// Package server 提供 Slack 事件回调的 HTTP 服务
// 投资人在 Slack 卡片上加表情，这里负责把表情翻译成筛选状态回写数据库
package server

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dealflow/internal/port"
)

// 表情 → 筛选状态映射
var reactionStatusMap = map[string]string{
	"books":      "Interesting",
	"thumbsdown": "Pass",
	"-1":         "Pass",
	"email":      "Reach Out",
	"envelope":   "Reach Out",
}

// Server 承载 Slack 回调路由
type Server struct {
	store  port.Repository
	router *chi.Mux
}

// NewServer 构建路由
func NewServer(store port.Repository) *Server {
	s := &Server{store: store}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/slack/events", s.handleEvents)
	r.Post("/slack/interact", s.handleInteract)

	s.router = r
	return s
}

// Handler 暴露底层路由，方便测试和挂载
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe 启动监听
func (s *Server) ListenAndServe(addr string) error {
	log.Printf("🌐 Slack 回调服务启动: %s", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type slackEventPayload struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Event     struct {
		Type     string `json:"type"`
		Reaction string `json:"reaction"`
		User     string `json:"user"`
		Item     struct {
			Type    string `json:"type"`
			Channel string `json:"channel"`
			TS      string `json:"ts"`
		} `json:"item"`
	} `json:"event"`
}

// handleEvents 处理 Slack Events API 回调
// url_verification 要原样回显 challenge；reaction_added 走筛选流程
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}

	var payload slackEventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if payload.Type == "url_verification" {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(payload.Challenge))
		return
	}

	// 先应答再处理，Slack 要求 3 秒内返回 200
	w.WriteHeader(http.StatusOK)

	if payload.Event.Type != "reaction_added" || payload.Event.Item.Type != "message" {
		return
	}

	status, ok := reactionStatusMap[payload.Event.Reaction]
	if !ok {
		return // 无关表情，忽略
	}

	if err := s.store.UpdateTriage(r.Context(), payload.Event.Item.TS, status, payload.Event.User, ""); err != nil {
		log.Printf("⚠️ 筛选状态回写失败 (ts=%s): %v", payload.Event.Item.TS, err)
		return
	}
	log.Printf("✅ 线索已标记为 '%s' (by %s)", status, payload.Event.User)
}

type slackInteractPayload struct {
	Type string `json:"type"`
	User struct {
		Username string `json:"username"`
	} `json:"user"`
	Message struct {
		TS string `json:"ts"`
	} `json:"message"`
	Actions []struct {
		ActionID string `json:"action_id"`
		Value    string `json:"value"`
	} `json:"actions"`
}

// 按钮 action_id → 筛选状态映射
var actionStatusMap = map[string]string{
	"triage_interesting": "Interesting",
	"triage_pass":        "Pass",
	"triage_reach_out":   "Reach Out",
}

// handleInteract 处理交互按钮回调 (表单里的 payload 字段是 JSON)
func (s *Server) handleInteract(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	var payload slackInteractPayload
	if err := json.Unmarshal([]byte(r.FormValue("payload")), &payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)

	if len(payload.Actions) == 0 {
		return
	}

	action := payload.Actions[0]
	status, ok := actionStatusMap[action.ActionID]
	if !ok {
		return
	}

	// Pass 按钮可以带拒绝原因 (value 里)
	reason := ""
	if status == "Pass" {
		reason = action.Value
	}

	if err := s.store.UpdateTriage(r.Context(), payload.Message.TS, status, payload.User.Username, reason); err != nil {
		log.Printf("⚠️ 筛选状态回写失败 (ts=%s): %v", payload.Message.TS, err)
	}
}
