/*
	Project: Masomo Pages - page builder for the Masomo LMS (https://masomo.cd)
*/
package pagebuilder

/*
TODO: keep a page_revision table and let editors roll back to a previous layout
TODO: scheduled publishing: published_at in the future, picked up by a worker
TODO: admin: importpage -dir to import a whole folder of exported pages

FE: the builder UI lives in the LMS frontend
	- component picker: GET /v1/components
	- edition: one request per action, If-Match with the last ETag
	- renderers only ever read /published/:name
*/
