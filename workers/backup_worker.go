package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"clan-economy-bot/storage"
	"clan-economy-bot/utils"
)

// PollBackups periodically mirrors every state document to R2. Backups are
// best-effort: a failed upload is retried on the next tick and never blocks
// a mutation path.
func PollBackups(ctx context.Context, store storage.DocumentStore, interval time.Duration) {
	log.Println("Starting state backup mirror...")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("State backup mirror stopped.")
			return
		case <-ticker.C:
			docs, err := store.Snapshot()
			if err != nil {
				log.Printf("❌ Failed to snapshot state documents: %v", err)
				continue
			}
			stamp := time.Now().UTC().Format("2006-01-02")
			failed := 0
			for name, raw := range docs {
				key := fmt.Sprintf("backups/%s/%s.json", stamp, name)
				if err := utils.UploadJSON(ctx, key, raw); err != nil {
					log.Printf("❌ Backup upload failed for %s: %v", name, err)
					failed++
				}
			}
			if failed == 0 {
				log.Printf("✅ Mirrored %d state document(s) to R2.", len(docs))
			}
		}
	}
}
