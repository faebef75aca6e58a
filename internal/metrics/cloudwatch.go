package metrics

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"swapdesk/logger"
)

type cloudWatchState struct {
	client    *cloudwatch.Client
	namespace string
	region    string
}

var cwState atomic.Pointer[cloudWatchState]

var (
	// cloudWatchPublishInterval limits how often one metric series is sent.
	cloudWatchPublishInterval = 10 * time.Second
	timeNow                   = time.Now
	publishMetricsFunc        = publishMetrics

	lastPublishMu sync.Mutex
	lastPublish   = make(map[string]time.Time)
)

func init() {
	cwState.Store(&cloudWatchState{namespace: "Swapdesk"})
}

// InitCloudWatch creates the CloudWatch client. When the AWS configuration
// cannot be loaded a warning is logged and publishing stays disabled.
func InitCloudWatch(ctx context.Context, region, namespace string) {
	log := logger.GetLogger().WithComponent("cloudwatch")

	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		log.WithError(err).Warn("failed to load AWS configuration; CloudWatch metrics disabled")
		return
	}

	state := cloudWatchState{namespace: "Swapdesk"}
	if current := cwState.Load(); current != nil {
		state = *current
	}
	state.client = cloudwatch.NewFromConfig(cfg)
	if namespace != "" {
		state.namespace = namespace
	}
	state.region = region
	if cfg.Region != "" {
		state.region = cfg.Region
	}
	cwState.Store(&state)

	log.WithFields(logger.Fields{
		"region":    state.region,
		"namespace": state.namespace,
	}).Info("initialized CloudWatch client")
}

// CloudWatchEnabled reports whether InitCloudWatch produced a client.
func CloudWatchEnabled() bool {
	state := cwState.Load()
	return state != nil && state.client != nil
}

// publishEvent sends ev to CloudWatch when a client is configured. Each
// component/name series is sent at most once per cloudWatchPublishInterval.
func publishEvent(ev Event) {
	state := cwState.Load()
	if state == nil || state.client == nil {
		return
	}
	if !allowPublish(ev.Component + "/" + ev.Name) {
		return
	}

	unit, _ := metricUnitFromString(ev.Unit)

	dims := []cwtypes.Dimension{{Name: aws.String("component"), Value: aws.String(ev.Component)}}
	for k, v := range ev.Labels {
		if v != "" {
			dims = append(dims, cwtypes.Dimension{Name: aws.String(k), Value: aws.String(v)})
		}
	}

	data := []cwtypes.MetricDatum{{
		MetricName: aws.String(ev.Name),
		Dimensions: dims,
		Unit:       unit,
		Value:      aws.Float64(ev.Value),
		Timestamp:  aws.Time(ev.Timestamp),
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	publishMetricsFunc(ctx, state, data)
}

func allowPublish(key string) bool {
	now := timeNow()

	lastPublishMu.Lock()
	defer lastPublishMu.Unlock()
	if last, ok := lastPublish[key]; ok && now.Sub(last) < cloudWatchPublishInterval {
		return false
	}
	lastPublish[key] = now
	return true
}

func resetMetricPublishTimes() {
	lastPublishMu.Lock()
	lastPublish = make(map[string]time.Time)
	lastPublishMu.Unlock()
}

func publishMetrics(ctx context.Context, state *cloudWatchState, data []cwtypes.MetricDatum) {
	if state == nil || state.client == nil || len(data) == 0 {
		return
	}

	if _, err := state.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(state.namespace),
		MetricData: data,
	}); err != nil {
		logger.GetLogger().WithComponent("cloudwatch").WithError(err).Warn("failed to publish CloudWatch metrics")
		return
	}

	names := make([]string, 0, len(data))
	for _, datum := range data {
		if datum.MetricName != nil {
			names = append(names, *datum.MetricName)
		}
	}
	logger.GetLogger().WithComponent("cloudwatch").WithFields(logger.Fields{"metrics": strings.Join(names, ",")}).Debug("published metrics to CloudWatch")
}

func metricUnitFromString(unit string) (cwtypes.StandardUnit, bool) {
	switch strings.ToLower(unit) {
	case "count":
		return cwtypes.StandardUnitCount, true
	case "percent":
		return cwtypes.StandardUnitPercent, true
	case "milliseconds", "ms":
		return cwtypes.StandardUnitMilliseconds, true
	default:
		return cwtypes.StandardUnitCount, false
	}
}
