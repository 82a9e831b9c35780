package constant

const (
	AppName            = "Tarik Chat"
	DefaultSessionName = "New Chat"

	LocalSessionsKey      = "tarikChatSessions"
	LocalActiveSessionKey = "tarikChatActiveSessionId"
	LocalLanguageKey      = "tarikChatLanguage"

	MaxStoredMessages       = 30
	MaxMessageContentLength = 2000
	TruncationMarker        = "... (truncated)"

	ThinkingMarker         = "Thinking..."
	ReplyFailedMessage     = "Sorry, I couldn't process your request."
	AnalysisFailedMessage  = "Sorry, I couldn't analyze the uploaded image."
	AnalysisMessagePrefix  = "Detected objects in your image: "
	TitleMaxWords          = 5
	TitleMaxLength         = 30
	TitleMinLength         = 3
	TitleTruncationSuffix  = "..."
	AuthRequiredTitle      = "Authentication Required"
	AuthRequiredMessage    = "Please log in to send messages."
	ReplyFailedTitle       = "Error"
	PersistFailedTitle     = "Sync Failed"
	StorageFullTitle       = "Storage Full"
	StorageFullDescription = "Local storage is full. Older chats may not be saved."
)
