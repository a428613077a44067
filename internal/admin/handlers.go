package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"todoke/internal/generated"
	"todoke/internal/server"
)

// HealthCheck はヘルスチェックエンドポイントの実装
func (s *Server) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, generated.HealthResponse{
		Status:    generated.Healthy,
		Timestamp: time.Now(),
	})
}

// GetStatus はサーバー状態取得エンドポイントの実装
func (s *Server) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, convertStatus(s.provider.Status(), time.Now()))
}

// GetOpenAPISpec はOpenAPI定義をJSONで返す
func (s *Server) GetOpenAPISpec(c *gin.Context) {
	c.JSON(http.StatusOK, s.swagger)
}

// convertStatus は配信サーバーの状態をAPIのスキーマに変換する
func convertStatus(st server.Status, now time.Time) generated.StatusResponse {
	status := generated.Stopped
	if st.Running {
		status = generated.Running
	}

	return generated.StatusResponse{
		Status: status,
		Server: generated.ServerInfo{
			Address:   st.Address,
			Root:      st.Root,
			StartedAt: st.StartedAt,
		},
		Features: generated.FeatureInfo{
			ShowDirectoryListing:     st.Features.ShowDirectoryListing,
			CompressOnFly:            st.Features.CompressOnFly,
			SendCompressedIfAccepted: st.Features.SendCompressedIfAccepted,
		},
		Pool: generated.PoolInfo{
			Workers:   st.Pool.Workers,
			QueueSize: st.Pool.QueueSize,
			Busy:      st.Pool.Busy,
			Queued:    st.Pool.Queued,
			Completed: st.Pool.Completed,
			Panics:    st.Pool.Panics,
		},
		Stats: generated.StatsInfo{
			Connections:     st.Stats.Connections,
			AcceptErrors:    st.Stats.AcceptErrors,
			Served:          st.Stats.Served,
			NotFound:        st.Stats.NotFound,
			Malformed:       st.Stats.Malformed,
			ReadErrors:      st.Stats.ReadErrors,
			WriteErrors:     st.Stats.WriteErrors,
			SidecarsCreated: st.Stats.SidecarsCreated,
			SidecarsReused:  st.Stats.SidecarsReused,
			CompressErrors:  st.Stats.CompressErrors,
			BytesSent:       st.Stats.BytesSent,
		},
		Timestamp: now,
	}
}
