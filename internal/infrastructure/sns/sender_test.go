package sns

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(aws.ToString(in.PhoneNumber), aws.ToString(in.Message))
	return &sns.PublishOutput{}, args.Error(0)
}

func TestSendSMS_NormalizesNumber(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", "+639171234567", "code 123456").Return(nil)

	require.NoError(t, newSender(pub).SendSMS(context.Background(), "09171234567", "code 123456"))
	pub.AssertExpectations(t)
}

func TestSendSMS_Error(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", "+639171234567", "hi").Return(errors.New("opted out"))

	err := newSender(pub).SendSMS(context.Background(), "+639171234567", "hi")
	assert.ErrorContains(t, err, "opted out")
}

func TestToE164(t *testing.T) {
	assert.Equal(t, "+639171234567", toE164("09171234567"))
	assert.Equal(t, "+639171234567", toE164("+639171234567"))
	assert.Equal(t, "+639171234567", toE164(" 09171234567 "))
}
