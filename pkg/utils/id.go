package utils

import (
	"strings"

	"github.com/google/uuid"
)

// namespaceUsers - пространство имен для стабильных ID участников.
var namespaceUsers = uuid.NewSHA1(uuid.NameSpaceURL, []byte("vtt:users"))

// GenerateID создает уникальный ID для объектов карты, сущностей и подключений.
func GenerateID() string {
	return uuid.NewString()
}

// UserID выводит ID участника из имени (без учета регистра).
// При переподключении под тем же именем ID совпадает, и владение токенами сохраняется.
func UserID(username string) string {
	return uuid.NewSHA1(namespaceUsers, []byte(strings.ToLower(strings.TrimSpace(username)))).String()
}

// IsID проверяет, похожа ли строка на сгенерированный ID.
// Используется, чтобы отличить ID от имени в аргументах команд.
func IsID(s string) bool {
	return uuid.Validate(s) == nil
}
