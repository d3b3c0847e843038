package middlewares

import "github.com/gin-gonic/gin"

// Chain собирает цепочку, пропуская nil (отключённые) обработчики
func Chain(handlers ...gin.HandlerFunc) gin.HandlersChain {
	chain := make(gin.HandlersChain, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			chain = append(chain, h)
		}
	}
	// cap == len, чтобы append у вызывающего не делил массив между маршрутами
	return chain[:len(chain):len(chain)]
}
