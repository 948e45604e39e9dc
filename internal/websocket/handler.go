package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = gorillaWS.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 扩展通过共享令牌鉴权,不依赖 Origin
		return true
	},
}

// Handler 浏览器扩展接入点
// token 为空时不做校验,否则要求 query 参数携带一致的令牌
func Handler(hub *Hub, token string, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 校验共享令牌
		if token != "" && c.Query("token") != token {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// 2. 升级连接
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
			return
		}

		// 3. 创建并注册客户端
		client := NewClient(uuid.New().String(), hub, conn, logger)
		hub.Register <- client

		logger.WithField("client_id", client.ID).Info("browser extension connected")

		// 4. 启动读写泵
		go client.ReadPump()
		go client.WritePump()
	}
}
