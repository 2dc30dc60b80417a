package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mentorkit/mentor/internal/orchestrator"
	"github.com/mentorkit/mentor/internal/session"
)

type historyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toMessages(history []historyMessage) []session.Message {
	out := make([]session.Message, 0, len(history))
	for _, m := range history {
		out = append(out, session.NewMessage(m.Role, m.Content))
	}
	return out
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	list, err := s.repo.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "sessions": list})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme string `json:"theme"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Theme = strings.TrimSpace(req.Theme)
	if req.Theme == "" {
		writeError(w, http.StatusBadRequest, "theme must not be empty")
		return
	}

	sess, err := s.repo.Create(req.Theme)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"session": map[string]any{
			"id":         sess.ID,
			"theme":      sess.Theme,
			"created_at": sess.CreatedAt.Format(time.RFC3339),
		},
	})
}

// handleInquiry streams one needs-inquiry turn as SSE.
func (s *Server) handleInquiry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string           `json:"message"`
		History []historyMessage `json:"history"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	stream, err := s.orch.RunInquiryTurn(r.Context(), sessionID, req.Message, toMessages(req.History))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	s.streamTurn(w, stream)
}

// handleChat streams one teaching turn as SSE.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	stream, err := s.orch.RunTeachingTurn(r.Context(), sessionID, req.Message)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	s.streamTurn(w, stream)
}

// streamTurn frames orchestrator events as the SSE payloads clients expect.
func (s *Server) streamTurn(w http.ResponseWriter, stream <-chan orchestrator.Event) {
	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer sse.close()

	for ev := range stream {
		switch ev.Kind {
		case orchestrator.KindContent:
			sse.send(map[string]any{"content": ev.Content})
		case orchestrator.KindToolStarted:
			sse.send(map[string]any{"tool_call": map[string]any{"name": ev.Tool, "status": "started"}})
		case orchestrator.KindToolCompleted:
			payload := map[string]any{"name": ev.Tool, "status": "completed"}
			if ev.Result != nil {
				payload["result"] = ev.Result
				if ev.Result.Error != "" {
					payload["status"] = "error"
					payload["error"] = ev.Result.Error
				}
			}
			sse.send(map[string]any{"tool_call": payload})
		case orchestrator.KindExercise:
			sse.send(map[string]any{"exercise": ev.Exercise})
		case orchestrator.KindStatus:
			sse.send(map[string]any{"status": ev.Status})
		case orchestrator.KindInquiryComplete:
			sse.send(map[string]any{"inquiry_complete": true, "summary": ev.Summary})
		case orchestrator.KindError:
			sse.send(map[string]any{"error": ev.Err.Error()})
			return
		case orchestrator.KindDone:
			sse.send(map[string]any{"done": true, "token_count": ev.TokenCount, "full_response": ev.FullResponse})
		}
	}
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		History []historyMessage `json:"history"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	plan, err := s.orch.GeneratePlan(r.Context(), sessionID, toMessages(req.History))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"study_plan": plan,
		"welcome":    s.orch.TeachingWelcome(),
	})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	sess, err := s.repo.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"messages":        sess.Messages,
		"phase":           sess.Phase,
		"token_count":     sess.TokenCount,
		"token_threshold": sess.TokenThreshold,
	})
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := s.repo.Get(sessionID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	files, err := s.repo.Store().FileTree(sessionID, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if files == nil {
		files = []session.FileEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "files": files})
}

func (s *Server) handleReadFile(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := s.repo.Get(sessionID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	relPath := chi.URLParam(r, "*")
	root := s.repo.Store().Dir(sessionID)
	fullPath := filepath.Clean(filepath.Join(root, relPath))
	if fullPath != root && !strings.HasPrefix(fullPath, root+string(filepath.Separator)) {
		writeError(w, http.StatusBadRequest, "illegal path")
		return
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "content": string(data), "path": relPath})
}

// handleExport bundles metadata, conversation, plan and file listing into one
// downloadable JSON document.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := s.repo.Get(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	files, _ := s.repo.Store().FileTree(sessionID, 0)
	if files == nil {
		files = []session.FileEntry{}
	}

	export := map[string]any{
		"metadata": map[string]any{
			"session_id":       sess.ID,
			"theme":            sess.Theme,
			"created_at":       sess.CreatedAt.Format(time.RFC3339),
			"current_phase":    sess.Phase,
			"export_timestamp": time.Now().Format(time.RFC3339),
			"version":          "1.0",
		},
		"conversation": sess.Messages,
		"study_plan":   s.repo.Store().StudyPlan(sessionID),
		"files":        files,
	}

	w.Header().Set("Content-Disposition", "attachment; filename="+exportFilename(sessionID))
	writeJSON(w, http.StatusOK, export)
}

func (s *Server) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := s.repo.Get(sessionID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	exercise, err := s.repo.Store().LoadExercise(sessionID, chi.URLParam(r, "exerciseID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "exercise not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "exercise": exercise})
}

func (s *Server) handleValidateExercise(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID  string   `json:"session_id"`
		ExerciseID string   `json:"exercise_id"`
		Answers    []string `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := s.repo.Get(req.SessionID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	exercise, err := s.repo.Store().LoadExercise(req.SessionID, req.ExerciseID)
	if err != nil {
		writeError(w, http.StatusNotFound, "exercise not found")
		return
	}

	grade := exercise.Grade(req.Answers)
	if grade.RequiresGrading {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":          true,
			"requires_grading": true,
			"message":          "short answers need model-side grading",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"correct":         grade.Correct,
		"correct_answers": grade.CorrectAnswers,
		"explanation":     grade.Explanation,
	})
}
