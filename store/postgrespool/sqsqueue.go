package postgrespool

// SQS gives the postgres-backed store its work queue: each ready
// instruction state's encoded JSON is sent as a message body,
// ReceiveMessage's visibility timeout is the lease, and deleting the
// message is how a terminal ack removes a state from dispatch for good.

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const visibilityTimeoutSeconds = 30

type sqsQueue struct {
	client   *sqs.Client
	queueURL string
}

func newSQSQueue(ctx context.Context, client *sqs.Client, queueName string) (*sqsQueue, error) {
	queueURL, err := ensureQueue(ctx, client, queueName)
	if err != nil {
		return nil, err
	}
	return &sqsQueue{client: client, queueURL: queueURL}, nil
}

func ensureQueue(ctx context.Context, client *sqs.Client, queueName string) (string, error) {
	got, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(queueName)})
	if err == nil {
		return aws.ToString(got.QueueUrl), nil
	}

	created, err := client.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName: aws.String(queueName),
		Attributes: map[string]string{
			string(types.QueueAttributeNameVisibilityTimeout): fmt.Sprintf("%d", visibilityTimeoutSeconds),
		},
	})
	if err != nil {
		return "", fmt.Errorf("create queue %s: %w", queueName, err)
	}
	return aws.ToString(created.QueueUrl), nil
}

func (q *sqsQueue) send(ctx context.Context, encodedState string) error {
	_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(encodedState),
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// receive long-polls for up to one message and returns its body (an
// encoded instruction state) and receipt handle. Returns "", "", nil if
// no message arrived within the wait window.
func (q *sqsQueue) receive(ctx context.Context) (encodedState string, receiptHandle string, err error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     5,
		VisibilityTimeout:   visibilityTimeoutSeconds,
	})
	if err != nil {
		return "", "", fmt.Errorf("receive message: %w", err)
	}
	if len(out.Messages) == 0 {
		return "", "", nil
	}
	msg := out.Messages[0]
	return aws.ToString(msg.Body), aws.ToString(msg.ReceiptHandle), nil
}

func (q *sqsQueue) delete(ctx context.Context, receiptHandle string) error {
	if receiptHandle == "" {
		return nil
	}
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}
