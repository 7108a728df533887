package network

import (
	"sync"

	"github.com/hopper1357/VTT/pkg/api"
)

// Broadcaster занимается только доставкой конвертов подключенным клиентам.
// У каждого клиента своя буферизованная очередь, поэтому порядок сообщений
// внутри одного подключения сохраняется, а медленный клиент не тормозит остальных.
type Broadcaster struct {
	mu sync.RWMutex
	// Мапа: ClientID -> Личный канал
	subscribers map[string]chan api.Envelope
	bufferSize  int
}

func NewBroadcaster(bufferSize int) *Broadcaster {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Broadcaster{
		subscribers: make(map[string]chan api.Envelope),
		bufferSize:  bufferSize,
	}
}

// Register создает личный канал для подключения.
func (b *Broadcaster) Register(clientID string) <-chan api.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Если канал был, закрываем
	if old, ok := b.subscribers[clientID]; ok {
		close(old)
	}

	ch := make(chan api.Envelope, b.bufferSize)
	b.subscribers[clientID] = ch
	return ch
}

// Unregister удаляет подписчика и закрывает его канал.
// writePump увидит закрытие и завершит соединение.
func (b *Broadcaster) Unregister(clientID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[clientID]
	if !ok {
		return false
	}
	close(ch)
	delete(b.subscribers, clientID)
	return true
}

// SendTo отправляет конверт одному клиенту (Unicast).
// false - клиента нет или его очередь переполнена.
func (b *Broadcaster) SendTo(clientID string, msg api.Envelope) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ch, ok := b.subscribers[clientID]
	if !ok {
		return false
	}
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}

// Broadcast отправляет всем, кроме except (пустая строка - всем).
// Возвращает ID клиентов, чьи очереди переполнены: их нужно отключить,
// иначе реплика молча разойдется с сервером.
func (b *Broadcaster) Broadcast(msg api.Envelope, except string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var overflow []string
	for id, ch := range b.subscribers {
		if id == except {
			continue
		}
		select {
		case ch <- msg:
		default:
			overflow = append(overflow, id)
		}
	}
	return overflow
}

// HasSubscriber проверяет, подключен ли клиент.
func (b *Broadcaster) HasSubscriber(clientID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.subscribers[clientID]
	return ok
}

// SubscriberCount возвращает количество активных подписчиков.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close закрывает все каналы (остановка сервера).
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
