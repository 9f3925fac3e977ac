package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sns.PublishOutput{}, f.err
}

func TestSNSClientPublish(t *testing.T) {
	fake := &fakeSNS{}
	client := &SNSClient{client: fake}

	err := client.Publish(context.Background(), "arn:aws:sns:us-east-1:000000000000:orders", "order.created", []byte(`{"id":"1"}`))
	require.NoError(t, err)
	require.Len(t, fake.inputs, 1)

	in := fake.inputs[0]
	assert.Equal(t, `{"id":"1"}`, *in.Message)
	assert.Equal(t, "order.created", *in.MessageAttributes["eventType"].StringValue)
}

func TestSNSClientPublishErrors(t *testing.T) {
	client := &SNSClient{client: &fakeSNS{err: errors.New("throttled")}}

	assert.Error(t, client.Publish(context.Background(), "", "order.created", nil))
	assert.ErrorContains(t, client.Publish(context.Background(), "arn", "", nil), "throttled")
}

type fakeSecrets struct {
	calls  int
	values map[string]string
	binary map[string]bool
	err    error
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.binary[*in.SecretId] {
		return &secretsmanager.GetSecretValueOutput{SecretBinary: []byte{0x1}}, nil
	}
	v, ok := f.values[*in.SecretId]
	if !ok {
		return nil, &smtypes.ResourceNotFoundException{Message: in.SecretId}
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: &v}, nil
}

func TestSecretsClientCachesValues(t *testing.T) {
	fake := &fakeSecrets{values: map[string]string{"JWT_SECRET": "s3cret"}}
	client := newSecretsClient(fake)

	for i := 0; i < 3; i++ {
		v, err := client.GetSecret(context.Background(), "JWT_SECRET")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", v)
	}
	assert.Equal(t, 1, fake.calls)
}

func TestSecretsClientErrors(t *testing.T) {
	fake := &fakeSecrets{binary: map[string]bool{"CERT": true}}
	client := newSecretsClient(fake)

	_, err := client.GetSecret(context.Background(), "MISSING")
	var secretErr *SecretError
	require.ErrorAs(t, err, &secretErr)
	assert.Equal(t, "MISSING", secretErr.Name)
	assert.ErrorIs(t, err, ErrSecretNotFound)

	_, err = client.GetSecret(context.Background(), "CERT")
	assert.ErrorIs(t, err, ErrSecretNotString)
	assert.EqualError(t, err, "secret CERT: secret has no string value")

	_, err = client.GetSecret(context.Background(), "MISSING")
	require.Error(t, err)
	assert.Equal(t, 3, fake.calls, "failures are not cached")

	fake.err = errors.New("throttled")
	_, err = client.GetSecret(context.Background(), "ANY")
	assert.ErrorContains(t, err, "throttled")
	assert.NotErrorIs(t, err, ErrSecretNotFound)
}

func TestSecretsClientResolve(t *testing.T) {
	fake := &fakeSecrets{values: map[string]string{"a": "1", "b": "2"}}
	client := newSecretsClient(fake)

	found, err := client.Resolve(context.Background(), "a", "missing", "b")

	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, found)
	assert.ErrorIs(t, err, ErrSecretNotFound)
	assert.ErrorContains(t, err, "secret missing")

	found, err = client.Resolve(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "1", found["a"])
}

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestMetricsClient(t *testing.T) {
	t.Run("disabled client sends nothing", func(t *testing.T) {
		fake := &fakeCloudWatch{}
		m := &MetricsClient{client: fake, namespace: "test", enabled: false}

		require.NoError(t, m.RecordCount(context.Background(), MetricOrdersCreated, nil))
		assert.Empty(t, fake.inputs)
	})

	t.Run("nil client is disabled", func(t *testing.T) {
		var m *MetricsClient
		assert.False(t, m.IsEnabled())
	})

	t.Run("enabled client puts datum with dimensions", func(t *testing.T) {
		fake := &fakeCloudWatch{}
		m := &MetricsClient{client: fake, namespace: "test", enabled: true}

		require.NoError(t, m.RecordValue(context.Background(), MetricOrderValue, 12.5, map[string]string{"Service": "api"}))
		require.Len(t, fake.inputs, 1)

		datum := fake.inputs[0].MetricData[0]
		assert.Equal(t, MetricOrderValue, *datum.MetricName)
		assert.Equal(t, 12.5, *datum.Value)
		require.Len(t, datum.Dimensions, 1)
		assert.Equal(t, "Service", *datum.Dimensions[0].Name)
	})
}

type fakeLogs struct {
	calls     int
	events    []types.InputLogEvent
	groupErr  error
	nextToken string
}

func (f *fakeLogs) CreateLogGroup(context.Context, *cloudwatchlogs.CreateLogGroupInput, ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error) {
	return &cloudwatchlogs.CreateLogGroupOutput{}, f.groupErr
}

func (f *fakeLogs) PutRetentionPolicy(context.Context, *cloudwatchlogs.PutRetentionPolicyInput, ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error) {
	return &cloudwatchlogs.PutRetentionPolicyOutput{}, nil
}

func (f *fakeLogs) CreateLogStream(context.Context, *cloudwatchlogs.CreateLogStreamInput, ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error) {
	return &cloudwatchlogs.CreateLogStreamOutput{}, nil
}

func (f *fakeLogs) PutLogEvents(_ context.Context, in *cloudwatchlogs.PutLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	f.calls++
	f.events = append(f.events, in.LogEvents...)
	return &cloudwatchlogs.PutLogEventsOutput{NextSequenceToken: &f.nextToken}, nil
}

func TestCloudWatchLogsClientWrite(t *testing.T) {
	fake := &fakeLogs{groupErr: &types.ResourceAlreadyExistsException{}, nextToken: "t1"}
	c := &CloudWatchLogsClient{client: fake, logGroupName: "/grocery/api", logStreamName: "api-1"}

	require.NoError(t, c.ensureLogGroup(context.Background()))

	batch := []byte("{\"msg\":\"a\"}\n{\"msg\":\"b\"}\n\n{\"msg\":\"c\"}\n")
	n, err := c.Write(batch)
	require.NoError(t, err)
	assert.Equal(t, len(batch), n)
	assert.Equal(t, 1, fake.calls, "one request per flushed batch")
	require.Len(t, fake.events, 3)
	assert.Equal(t, `{"msg":"a"}`, *fake.events[0].Message)
	assert.Equal(t, `{"msg":"c"}`, *fake.events[2].Message)
	assert.Equal(t, "t1", *c.sequenceToken)

	n, err = c.Write([]byte("\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, fake.calls, "blank writes are not shipped")
}
