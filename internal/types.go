package internal

import (
	"sjsage522/couponworker/helpers"
	"sjsage522/couponworker/services/cache"
	"sjsage522/couponworker/services/publisher"
)

// Dependencies holds all service dependencies
type Dependencies struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	ErrorLog  helpers.LoggerInterface
}
