package orders

import "strconv"

const (
	TopicOrderCreated       = "order.created"
	TopicOrderRejected      = "order.rejected"
	TopicOrderStatusChanged = "order.status_changed"
	TopicProductLowStock    = "product.low_stock"
)

// PartitionKey keeps every event of one order on one partition.
func PartitionKey(orderID int64) []byte { return []byte(strconv.FormatInt(orderID, 10)) }
