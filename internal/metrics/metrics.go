package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// IngestionTasks 按终态统计摄取任务
var IngestionTasks = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notebase_ingestion_tasks_total",
		Help: "Total number of ingestion tasks by final state",
	},
	[]string{"state"},
)

// IngestionChunks 成功摄取的分块总数
var IngestionChunks = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "notebase_ingestion_chunks_total",
		Help: "Total number of chunks embedded and stored",
	},
)

// ChatRequests 按结果统计问答请求
var ChatRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notebase_chat_requests_total",
		Help: "Total number of chat requests by outcome",
	},
	[]string{"status"},
)

// ChatDuration 问答请求耗时分布
var ChatDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "notebase_chat_duration_seconds",
		Help:    "Duration of chat request handling",
		Buckets: prometheus.DefBuckets,
	},
)
