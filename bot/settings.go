package bot

import "sync"

// Settings holds runtime settings with thread-safe access.
type Settings struct {
	mu       sync.RWMutex
	chatID   int64
	pushTime string
}

// NewSettings initializes settings.
func NewSettings(chatID int64, pushTime string) *Settings {
	return &Settings{chatID: chatID, pushTime: pushTime}
}

func (s *Settings) ChatID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatID
}

func (s *Settings) SetChatID(id int64) {
	s.mu.Lock()
	s.chatID = id
	s.mu.Unlock()
}

func (s *Settings) PushTime() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pushTime
}

func (s *Settings) SetPushTime(value string) {
	s.mu.Lock()
	s.pushTime = value
	s.mu.Unlock()
}
