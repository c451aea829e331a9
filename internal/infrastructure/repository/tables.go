package repository

// Tables (collections) of the data store
const (
	TableConnections   = "platform_connections"
	TableStores        = "stores"
	TableInstallations = "tracking_installations"
	TablePerformance   = "platform_performance"
	TableSettings      = "attribution_settings"
)

// uniqueKeys are the column sets that identify at most one row per table.
// MongoStore.EnsureIndexes declares the same sets as unique indexes.
var uniqueKeys = map[string][][]string{
	TableStores:      {{"shopDomain"}, {"trackingId"}},
	TablePerformance: {{"userId", "platformName", "date"}},
	TableSettings:    {{"userId"}},
}
