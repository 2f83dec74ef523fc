package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackfold/hosting-system/internal/api/metrics"
	"github.com/stackfold/hosting-system/internal/core/domain"
	"github.com/stackfold/hosting-system/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	maxAttempts    = 5
	retryDelay     = 30 * time.Second
)

type job struct {
	ports.TeardownJob
	attempt int
}

// Dispatcher retries storage teardowns that were left incomplete by a
// deprovision or tenant delete. Jobs are routed to a fixed set of workers
// using consistent hashing on the tenant name, so retries for the same
// tenant never interleave.
type Dispatcher struct {
	workers     []chan job
	provisioner ports.ProvisionService
	tenants     ports.TenantRepository
	log         zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, provisioner ports.ProvisionService, tenants ports.TenantRepository, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:     make([]chan job, numWorkers),
		provisioner: provisioner,
		tenants:     tenants,
		log:         log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan job, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands a teardown job to the worker responsible for its tenant.
// The call is non-blocking up to channelBuffer capacity.
func (d *Dispatcher) Enqueue(t ports.TeardownJob) {
	d.enqueue(job{TeardownJob: t, attempt: 1})
}

func (d *Dispatcher) enqueue(j job) {
	idx := d.shardIndex(j.TenantName)
	d.workers[idx] <- j
	metrics.TeardownQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
}

// shardIndex maps a tenant name deterministically to a worker index.
func (d *Dispatcher) shardIndex(tenantName string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tenantName))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan job) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-ch:
			if !ok {
				return
			}
			metrics.TeardownQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(float64(len(ch)))
			d.process(ctx, id, j)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, workerID int, j job) {
	tenant := &domain.Tenant{
		Name:    j.TenantName,
		Storage: &domain.StorageDescriptor{BucketName: j.BucketName},
	}

	err := d.provisioner.RemoveStorage(ctx, tenant)
	if err == nil {
		metrics.TeardownRetriesTotal.WithLabelValues("ok").Inc()
		d.log.Info().
			Str("tenant", j.TenantName).
			Str("bucket", j.BucketName).
			Int("attempt", j.attempt).
			Msg("background teardown completed")
		d.resolveTenant(ctx, j)
		return
	}

	if j.attempt >= maxAttempts {
		metrics.TeardownRetriesTotal.WithLabelValues("dropped").Inc()
		d.log.Error().Err(err).
			Str("tenant", j.TenantName).
			Str("bucket", j.BucketName).
			Int("worker_id", workerID).
			Msg("teardown abandoned after max attempts")
		return
	}

	metrics.TeardownRetriesTotal.WithLabelValues("retry").Inc()
	d.log.Warn().Err(err).
		Str("tenant", j.TenantName).
		Str("bucket", j.BucketName).
		Int("attempt", j.attempt).
		Msg("teardown incomplete, scheduling retry")

	next := job{TeardownJob: j.TeardownJob, attempt: j.attempt + 1}
	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(retryDelay):
			d.enqueue(next)
		}
	}()
}

// resolveTenant marks the tenant record removed once its bucket is gone.
// Jobs queued by a tenant delete find no record anymore; that is fine.
func (d *Dispatcher) resolveTenant(ctx context.Context, j job) {
	tenant, err := d.tenants.FindByName(ctx, j.TenantName)
	if errors.Is(err, domain.ErrTenantNotFound) {
		return
	}
	if err != nil {
		d.log.Error().Err(err).Str("tenant", j.TenantName).Msg("teardown done but tenant lookup failed")
		return
	}
	if tenant.State != domain.StateDeprovisioning && tenant.State != domain.StateDeprovisioningFailed {
		return
	}

	tenant.Storage = nil
	tenant.State = domain.StateRemoved
	tenant.UpdatedAt = time.Now().UTC()
	if err := d.tenants.Save(ctx, tenant); err != nil {
		d.log.Error().Err(err).Str("tenant", j.TenantName).Msg("failed to record teardown completion")
	}
}
