package server

import (
	"io"

	"github.com/MixinNetwork/telemetry/common"
	"github.com/MixinNetwork/telemetry/logger"
)

type Handler struct {
	log    *logger.Logger
	metric *MetricPool
}

func NewHandler(log *logger.Logger, metric *MetricPool) *Handler {
	return &Handler{log: log, metric: metric}
}

// Handle reads one payload to the end of stream and decodes it. The
// outcome is only logged and counted, nothing is written back.
func (h *Handler) Handle(stm io.Reader) (*common.Sample, error) {
	data, err := io.ReadAll(stm)
	if err != nil {
		h.metric.handle(MetricStreamReadFailed)
		h.log.Errorf("handler.ReadAll() => %d %v", len(data), err)
		return nil, err
	}
	s, err := common.DecodeSample(data)
	if err != nil {
		h.metric.handle(MetricSampleMalformed)
		h.log.Errorf("handler.DecodeSample() => %v, data: %s", err, common.RawText(data))
		return nil, err
	}
	h.metric.handle(MetricSampleDecoded)
	h.log.Printf("sample from device '%s' value %.2f", s.Sender, s.Value)
	return s, nil
}
