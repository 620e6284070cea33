package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMetricsAPI struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeMetricsAPI) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func TestMetricsClient_RecordCount(t *testing.T) {
	api := &fakeMetricsAPI{}
	m := NewMetricsClientWithAPI(api, "", true)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	require.NoError(t, m.RecordCount(context.Background(), MetricOrdersSubmitted, map[string]string{"Terminal": "till-1", "Service": "console"}))

	require.Len(t, api.inputs, 1)
	in := api.inputs[0]
	assert.Equal(t, "SupermartConsole", sdkaws.ToString(in.Namespace))
	require.Len(t, in.MetricData, 1)
	d := in.MetricData[0]
	assert.Equal(t, MetricOrdersSubmitted, sdkaws.ToString(d.MetricName))
	assert.Equal(t, 1.0, sdkaws.ToFloat64(d.Value))
	assert.Equal(t, types.StandardUnitCount, d.Unit)
	assert.Equal(t, fixed, sdkaws.ToTime(d.Timestamp))
	require.Len(t, d.Dimensions, 2)
	assert.Equal(t, "Service", sdkaws.ToString(d.Dimensions[0].Name))
	assert.Equal(t, "Terminal", sdkaws.ToString(d.Dimensions[1].Name))
}

func TestMetricsClient_LatencyAndErrors(t *testing.T) {
	api := &fakeMetricsAPI{err: errors.New("throttled")}
	m := NewMetricsClientWithAPI(api, "Custom", true)

	err := m.RecordLatency(context.Background(), MetricHTTPLatency, 1500*time.Millisecond, nil)
	assert.ErrorContains(t, err, "throttled")
	require.Len(t, api.inputs, 1)
	assert.Equal(t, "Custom", sdkaws.ToString(api.inputs[0].Namespace))
	assert.Equal(t, 1500.0, sdkaws.ToFloat64(api.inputs[0].MetricData[0].Value))
	assert.Equal(t, types.StandardUnitMilliseconds, api.inputs[0].MetricData[0].Unit)
}

func TestMetricsClient_DisabledAndNil(t *testing.T) {
	api := &fakeMetricsAPI{}
	assert.NoError(t, NewMetricsClientWithAPI(api, "", false).RecordValue(context.Background(), MetricOrderTotal, 9.5, nil))
	assert.Empty(t, api.inputs)

	var m *MetricsClient
	assert.False(t, m.IsEnabled())
	assert.NoError(t, m.RecordCount(context.Background(), MetricCacheHits, nil))
}
