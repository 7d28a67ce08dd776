package orders

const (
	TopicProductCreated = "inventory.product.created"
	TopicStockAdjusted  = "inventory.stock.adjusted"
	TopicRestock        = "inventory.restock"
	TopicOrderCreated   = "order.created"
)

// Partition key = aggregate id, so every event of one product/order stays ordered.
func PartitionKey(id string) []byte { return []byte(id) }
