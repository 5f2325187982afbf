//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	id "phasegate/pkg/domain"
	audit "phasegate/pkg/platform/audit"
	"phasegate/pkg/platform/audit/kafka"
	"phasegate/pkg/testutil/containers"
)

type PublisherSuite struct {
	suite.Suite
	broker *containers.RedpandaContainer
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.broker = mgr.GetRedpanda(s.T())
}

func (s *PublisherSuite) TestEmitRoundTrip() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "audit-" + uuid.NewString()[:8]
	pub, err := kafka.New([]string{s.broker.Broker}, topic)
	s.Require().NoError(err)
	defer pub.Close()

	s.Require().NoError(pub.EnsureTopic(ctx, 1, 1))
	// second call tolerates an existing topic
	s.Require().NoError(pub.EnsureTopic(ctx, 1, 1))

	profileID := id.ProfileID(uuid.New())
	s.Require().NoError(pub.Emit(ctx, audit.Event{
		Category:  audit.CategoryCompliance,
		Action:    audit.EventPhoneVerified,
		ProfileID: profileID,
		Timestamp: time.Now().UTC(),
	}))
	s.Require().NoError(pub.Flush(ctx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().Len(records, 1)
	s.Equal(profileID.String(), string(records[0].Key))

	var got audit.Event
	require.NoError(s.T(), json.Unmarshal(records[0].Value, &got))
	s.Equal(audit.EventPhoneVerified, got.Action)
	s.Equal(profileID, got.ProfileID)
}
