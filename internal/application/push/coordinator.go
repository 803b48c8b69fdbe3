package push

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-push-notify/internal/domain"
	"github.com/go-push-notify/internal/pkg/id"
	"golang.org/x/sync/errgroup"
)

const (
	kindDispatch  = "dispatch"
	kindBroadcast = "broadcast"

	dataNotificationID = "notificationId"
	dataUserID         = "userId"
	dataBroadcast      = "broadcast"
)

// CoordinatorDeps wires a Coordinator. Logs and Observer are optional.
type CoordinatorDeps struct {
	Registry       Registry
	Audience       PreferenceStore
	Channels       []Channel
	Logs           NotificationLog
	Observer       Observer
	Logger         *slog.Logger
	MaxConcurrency int
	DeleteRetries  int
	RetryBackoff   time.Duration
}

// Coordinator fans one message out to every destination of a set of owners
// and prunes destinations the providers report as gone.
type Coordinator struct {
	registry       Registry
	audience       PreferenceStore
	channels       map[domain.ChannelType]Channel
	logs           NotificationLog
	observer       Observer
	log            *slog.Logger
	newID          func() string
	maxConcurrency int
	deleteRetries  int
	retryBackoff   time.Duration
}

func NewCoordinator(d CoordinatorDeps) *Coordinator {
	c := &Coordinator{
		registry:       d.Registry,
		audience:       d.Audience,
		channels:       make(map[domain.ChannelType]Channel, len(d.Channels)),
		logs:           d.Logs,
		observer:       d.Observer,
		log:            d.Logger,
		newID:          id.New,
		maxConcurrency: d.MaxConcurrency,
		deleteRetries:  d.DeleteRetries,
		retryBackoff:   d.RetryBackoff,
	}
	for _, ch := range d.Channels {
		c.channels[ch.Type()] = ch
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.maxConcurrency <= 0 {
		c.maxConcurrency = 8
	}
	if c.deleteRetries <= 0 {
		c.deleteRetries = 1
	}
	if c.retryBackoff <= 0 {
		c.retryBackoff = 100 * time.Millisecond
	}
	return c
}

// Dispatch sends msg to every subscription of ownerID.
func (c *Coordinator) Dispatch(ctx context.Context, ownerID string, msg domain.Message) (domain.Summary, error) {
	c.observer.RecordDispatch(kindDispatch)
	sum, err := c.fanOut(ctx, kindDispatch, []string{ownerID}, msg)
	sum.PerOwner = nil
	return sum, err
}

// Broadcast sends msg to every owner the selector resolves to.
func (c *Coordinator) Broadcast(ctx context.Context, sel domain.AudienceSelector, msg domain.Message) (domain.Summary, error) {
	c.observer.RecordDispatch(kindBroadcast)
	owners, err := c.audience.OwnersWithPushEnabled(ctx, sel.Category)
	if err != nil {
		return domain.Summary{}, err
	}
	filtered := owners[:0:0]
	for _, o := range owners {
		if o != sel.ExcludeOwnerID {
			filtered = append(filtered, o)
		}
	}
	return c.fanOut(ctx, kindBroadcast, filtered, msg)
}

type job struct {
	ownerID string
	channel domain.ChannelType
	subs    []domain.Subscription
}

func (c *Coordinator) fanOut(ctx context.Context, kind string, owners []string, msg domain.Message) (domain.Summary, error) {
	if len(owners) == 0 {
		return domain.Summary{}, nil
	}
	subs, err := c.registry.ListForOwners(ctx, owners, domain.ListFilter{})
	if err != nil {
		return domain.Summary{}, err
	}
	if len(subs) == 0 {
		c.log.Info("no destinations", "kind", kind, "owners", len(owners))
		return domain.Summary{}, nil
	}

	notificationID := c.openLog(ctx, kind, owners, msg)
	if notificationID != "" {
		msg = msg.WithData(dataNotificationID, notificationID)
	}

	jobs := groupJobs(owners, subs)
	var (
		mu      sync.Mutex
		results = make([]domain.DeliveryResult, 0, len(subs))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrency)
	for _, j := range jobs {
		ownerMsg := msg
		if kind == kindBroadcast {
			ownerMsg = msg.WithData(dataUserID, j.ownerID).WithData(dataBroadcast, true)
		}
		g.Go(func() error {
			rs := c.send(gctx, j, ownerMsg)
			mu.Lock()
			results = append(results, rs...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	c.prune(context.WithoutCancel(ctx), results)

	sum := summarize(owners, results)
	sum.NotificationID = notificationID
	c.closeLog(context.WithoutCancel(ctx), notificationID, sum)

	c.log.Info("dispatch complete", "kind", kind, "notification_id", notificationID,
		"sent", sum.Sent, "failed", sum.Failed, "total", sum.Total)
	return sum, nil
}

// send runs one channel for one owner and guarantees one result per subscription.
func (c *Coordinator) send(ctx context.Context, j job, msg domain.Message) []domain.DeliveryResult {
	ch, ok := c.channels[j.channel]
	if !ok {
		out := make([]domain.DeliveryResult, len(j.subs))
		for i, sub := range j.subs {
			out[i] = domain.ResultFor(sub, &domain.ConfigurationError{Field: "channel." + string(j.channel)})
		}
		return out
	}
	start := time.Now()
	rs := ch.Send(ctx, j.subs, msg)
	c.observer.RecordSend(j.channel, time.Since(start), rs)
	return reconcile(j.subs, rs)
}

// reconcile drops results for unknown subscriptions and fills in a transient
// failure for any subscription the channel did not report on.
func reconcile(subs []domain.Subscription, rs []domain.DeliveryResult) []domain.DeliveryResult {
	byID := make(map[string]domain.DeliveryResult, len(rs))
	for _, r := range rs {
		byID[r.SubscriptionID] = r
	}
	out := make([]domain.DeliveryResult, len(subs))
	for i, sub := range subs {
		r, ok := byID[sub.ID]
		if !ok {
			r = domain.ResultFor(sub, &domain.DispatchError{Code: domain.CodeUnknown})
		}
		out[i] = r
	}
	return out
}

func (c *Coordinator) prune(ctx context.Context, results []domain.DeliveryResult) {
	for _, r := range results {
		if r.Outcome != domain.OutcomePermanentFailure {
			continue
		}
		err := c.deleteWithRetry(ctx, r.SubscriptionID)
		c.observer.RecordPrune(err)
		if err != nil {
			c.log.Warn("could not remove dead subscription", "subscription_id", r.SubscriptionID, "err", err)
			continue
		}
		c.log.Info("removed dead subscription", "subscription_id", r.SubscriptionID,
			"owner_id", r.OwnerID, "code", r.ErrorCode)
	}
}

func (c *Coordinator) deleteWithRetry(ctx context.Context, id string) error {
	var err error
	for attempt := 0; attempt < c.deleteRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * c.retryBackoff):
			}
		}
		if err = c.registry.Delete(ctx, id); err == nil {
			return nil
		}
	}
	return err
}

func (c *Coordinator) openLog(ctx context.Context, kind string, owners []string, msg domain.Message) string {
	if c.logs == nil {
		return ""
	}
	n := &domain.Notification{
		NotificationID: c.newID(),
		Title:          msg.Title,
		Body:           msg.Body,
		Data:           msg.Data,
		Status:         domain.StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	if kind == kindDispatch {
		n.OwnerID = owners[0]
	}
	if err := c.logs.Create(ctx, n); err != nil {
		c.log.Warn("could not create notification log", "err", err)
		return ""
	}
	return n.NotificationID
}

func (c *Coordinator) closeLog(ctx context.Context, notificationID string, sum domain.Summary) {
	if c.logs == nil || notificationID == "" {
		return
	}
	if err := c.logs.Finalize(ctx, notificationID, sum.Sent, sum.Failed, sum.Total); err != nil {
		c.log.Warn("could not finalize notification log", "notification_id", notificationID, "err", err)
	}
}

// groupJobs splits subs into one job per (owner, channel), in owner order.
func groupJobs(owners []string, subs []domain.Subscription) []job {
	byOwner := make(map[string]map[domain.ChannelType][]domain.Subscription, len(owners))
	for _, s := range subs {
		if byOwner[s.OwnerID] == nil {
			byOwner[s.OwnerID] = make(map[domain.ChannelType][]domain.Subscription, 2)
		}
		byOwner[s.OwnerID][s.ChannelType] = append(byOwner[s.OwnerID][s.ChannelType], s)
	}
	var jobs []job
	for _, o := range owners {
		groups := byOwner[o]
		for _, ct := range []domain.ChannelType{domain.ChannelNative, domain.ChannelBrowser} {
			if len(groups[ct]) > 0 {
				jobs = append(jobs, job{ownerID: o, channel: ct, subs: groups[ct]})
			}
		}
		for ct, ss := range groups {
			if !ct.Valid() {
				jobs = append(jobs, job{ownerID: o, channel: ct, subs: ss})
			}
		}
		delete(byOwner, o)
	}
	return jobs
}

func summarize(owners []string, results []domain.DeliveryResult) domain.Summary {
	perOwner := make(map[string]*domain.OwnerSummary, len(owners))
	var sum domain.Summary
	for _, r := range results {
		acc := perOwner[r.OwnerID]
		if acc == nil {
			acc = &domain.OwnerSummary{OwnerID: r.OwnerID}
			perOwner[r.OwnerID] = acc
		}
		if r.Delivered() {
			sum.Sent++
			acc.Sent++
		} else {
			sum.Failed++
			acc.Failed++
		}
	}
	sum.Total = sum.Sent + sum.Failed
	for _, o := range owners {
		if acc := perOwner[o]; acc != nil {
			sum.PerOwner = append(sum.PerOwner, *acc)
		}
	}
	return sum
}
