// Package database persists transcripts, summaries and images in sqlite
// through GORM.
//
// Open connects with retries and pool settings from Config. The schema is
// created either by GORM auto-migration (DB.AutoMigrate) or by the
// versioned SQL files of the migration subpackage.
//
//	db, err := database.Open(ctx, cfg, log)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	store := database.NewStore(db)
//
// Store implements coordinator.TranscriptStore. Errors are returned as
// *errors.AppError through FromDatabase.
package database
