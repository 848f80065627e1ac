package rabbitmq

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/taskflow/internal/models"
)

// ErrMalformedMessage сообщение нельзя разобрать, повторная доставка не поможет.
var ErrMalformedMessage = errors.New("malformed registration message")

// EncodeRegistrationMessage сериализует заявку в JSON и оборачивает в base64.
func EncodeRegistrationMessage(msg models.RegistrationMessage) ([]byte, error) {
	const op = "rabbitmq.EncodeRegistrationMessage"
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out, nil
}

// DecodeRegistrationMessage разбирает тело сообщения из очереди.
// Любая ошибка формата оборачивает ErrMalformedMessage.
func DecodeRegistrationMessage(body []byte) (models.RegistrationMessage, error) {
	const op = "rabbitmq.DecodeRegistrationMessage"
	var msg models.RegistrationMessage

	raw := make([]byte, base64.StdEncoding.DecodedLen(len(body)))
	n, err := base64.StdEncoding.Decode(raw, body)
	if err != nil {
		return msg, fmt.Errorf("%s: %w: %v", op, ErrMalformedMessage, err)
	}
	if err := json.Unmarshal(raw[:n], &msg); err != nil {
		return msg, fmt.Errorf("%s: %w: %v", op, ErrMalformedMessage, err)
	}
	if msg.Username == "" || msg.Email == "" || (msg.Password == "" && msg.PasswordHash == "") {
		return msg, fmt.Errorf("%s: %w: missing required fields", op, ErrMalformedMessage)
	}
	return msg, nil
}
