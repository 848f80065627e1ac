package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerMessage_HandleMessages(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	amqpURI, cleanup := amqpURIForTest(ctx, t)
	defer cleanup()

	conn, err := Connect(amqpURI, 3, time.Second)
	require.NoError(t, err)
	defer func() {
		if err := conn.Close(); err != nil {
			t.Errorf("failed to close connection: %v", err)
		}
	}()

	ch, err := conn.Channel()
	require.NoError(t, err)

	queueName := "consumer-test"
	_, err = ch.QueueDeclare(queueName, false, false, false, false, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)

	received := make([]string, 0)
	var mu sync.Mutex

	handler := func(body []byte) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, string(body))
		wg.Done()
		return nil
	}

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	done, err := ConsumerMessage(consumerCtx, ch, queueName, handler)
	require.NoError(t, err)

	for _, msg := range []string{"hello", "world"} {
		err := ch.Publish("", queueName, false, false, amqp.Publishing{
			ContentType: "text/plain",
			Body:        []byte(msg),
		})
		require.NoError(t, err)
	}

	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-time.After(10 * time.Second):
		t.Fatal("Timeout waiting for messages to be processed")
	}

	mu.Lock()
	assert.ElementsMatch(t, []string{"hello", "world"}, received)
	mu.Unlock()

	stopConsumer()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop after context cancel")
	}
}

func TestConsumerMessage_HandlerErrorTriggersRedelivery(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	amqpURI, cleanup := amqpURIForTest(ctx, t)
	defer cleanup()

	conn, err := Connect(amqpURI, 3, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	ch, err := conn.Channel()
	require.NoError(t, err)

	queueName := "redelivery-test"
	_, err = ch.QueueDeclare(queueName, false, false, false, false, nil)
	require.NoError(t, err)

	// Первая попытка падает, вторая проходит: сообщение должно прийти повторно.
	var attempts atomic.Int32
	succeeded := make(chan string, 1)
	handler := func(body []byte) error {
		if attempts.Add(1) == 1 {
			return fmt.Errorf("transient failure")
		}
		succeeded <- string(body)
		return nil
	}

	_, err = ConsumerMessage(ctx, ch, queueName, handler)
	require.NoError(t, err)

	err = ch.Publish("", queueName, false, false, amqp.Publishing{
		ContentType: "text/plain",
		Body:        []byte("retry-me"),
	})
	require.NoError(t, err)

	select {
	case body := <-succeeded:
		assert.Equal(t, "retry-me", body)
		assert.GreaterOrEqual(t, attempts.Load(), int32(2))
	case <-time.After(10 * time.Second):
		t.Fatal("Did not receive redelivered message after Nack")
	}
}

func TestConsumerMessage_UnknownQueue(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	amqpURI, cleanup := amqpURIForTest(ctx, t)
	defer cleanup()

	conn, err := Connect(amqpURI, 3, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	ch, err := conn.Channel()
	require.NoError(t, err)

	_, err = ConsumerMessage(ctx, ch, "no-such-queue", func([]byte) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rabbitmq.ConsumerMessage")
}

func TestConsumerMessage_StopsWhileHandlersBusy(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	amqpURI, cleanup := amqpURIForTest(ctx, t)
	defer cleanup()

	conn, err := Connect(amqpURI, 3, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	ch, err := conn.Channel()
	require.NoError(t, err)

	queueName := "busy-consumer-test"
	_, err = ch.QueueDeclare(queueName, false, false, false, false, nil)
	require.NoError(t, err)

	total := prefetchCount + 3
	for i := range total {
		err := ch.Publish("", queueName, false, false, amqp.Publishing{
			ContentType: "text/plain",
			Body:        []byte(fmt.Sprintf("msg-%d", i)),
		})
		require.NoError(t, err)
	}

	// Все обработчики висят, пока их не отпустят.
	release := make(chan struct{})
	var started atomic.Int32
	handler := func([]byte) error {
		started.Add(1)
		<-release
		return nil
	}

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	done, err := ConsumerMessage(consumerCtx, ch, queueName, handler)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return started.Load() == int32(prefetchCount) }, 10*time.Second, 20*time.Millisecond)
	// Даем циклу получить следующую доставку и упереться в семафор.
	time.Sleep(300 * time.Millisecond)

	stopConsumer()
	time.Sleep(300 * time.Millisecond)
	close(release)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop after context cancel")
	}
	assert.Equal(t, int32(prefetchCount), started.Load(), "no new handlers after cancel")

	inspectCh, err := conn.Channel()
	require.NoError(t, err)
	defer inspectCh.Close()
	require.NoError(t, ch.Close())
	require.Eventually(t, func() bool {
		q, err := inspectCh.QueueInspect(queueName)
		return err == nil && q.Messages == total-prefetchCount
	}, 5*time.Second, 50*time.Millisecond)
}
