/*
Package log provides structured logging for mutgosd using zerolog.

The global Logger is initialized once via Init with the level/format
from pkg/config; every subsystem derives a child logger from it with
WithComponent plus whichever identity fields apply (WithSite,
WithEntity, WithRequester, WithChannel) so every log line can be traced
back to the site, entity, or connection it concerns.

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	logger := log.WithComponent("dbaccess").With().Logger()
	logger.Info().Str("op", "delete_entity").Msg("deferred delete started")
*/
package log
