package dto

import "tarik-chat-be/internal/entity"

type CreateSessionRequest struct {
	Name string `json:"name" validate:"omitempty,max=100"`
}

type RenameSessionRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type SubmitTurnRequest struct {
	Text     string `json:"text" validate:"max=20000"`
	ImageUrl string `json:"imageUrl"`
	Language string `json:"language" validate:"omitempty,oneof=English Amharic"`
}

type SetLanguageRequest struct {
	Language string `json:"language" validate:"required,oneof=English Amharic"`
}

type LanguageResponse struct {
	Language entity.Language `json:"language"`
}

type SessionListResponse struct {
	Sessions []entity.ChatSession `json:"sessions"`
	ActiveId string               `json:"activeSessionId"`
	Remote   bool                 `json:"remote"`
}

type TurnResponse struct {
	TurnId          string              `json:"turnId"`
	SessionId       string              `json:"sessionId"`
	State           string              `json:"state"`
	UserMessage     entity.ChatMessage  `json:"userMessage"`
	AnalysisMessage *entity.ChatMessage `json:"analysisMessage,omitempty"`
	ReplyMessage    entity.ChatMessage  `json:"replyMessage"`
	Title           string              `json:"title,omitempty"`
	Error           string              `json:"error,omitempty"`
}
