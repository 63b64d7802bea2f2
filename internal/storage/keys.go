package storage

// Key layout: everything for one owner sits under "user/<owner>/".
const (
	ownerPrefix  = "user/"
	datasetLeaf  = "dataset"
	metaLeaf     = "meta"
	scheduleLeaf = "schedule"
	backupLeaf   = "backup/"
)

// OwnerPrefix returns the prefix covering every key for owner.
func OwnerPrefix(owner string) string {
	return ownerPrefix + owner + "/"
}

// DatasetKey is where the encoded record collection lives.
func DatasetKey(owner string) string {
	return OwnerPrefix(owner) + datasetLeaf
}

// MetaKey is where the derived dataset metadata lives.
func MetaKey(owner string) string {
	return OwnerPrefix(owner) + metaLeaf
}

// ScheduleKey is where the backup schedule lives.
func ScheduleKey(owner string) string {
	return OwnerPrefix(owner) + scheduleLeaf
}

// BackupPrefix covers all local snapshots for owner.
func BackupPrefix(owner string) string {
	return OwnerPrefix(owner) + backupLeaf
}

// BackupKey is where one snapshot lives; stamp comes from snapkey.Format.
func BackupKey(owner, stamp string) string {
	return BackupPrefix(owner) + stamp
}
