// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roadrats/wmsops/services/dbconn"
	"github.com/roadrats/wmsops/services/dberrors"
	"github.com/roadrats/wmsops/services/jira"
	"github.com/roadrats/wmsops/services/llm"
	"github.com/roadrats/wmsops/services/opsserver/handlers"
	"github.com/roadrats/wmsops/services/opsserver/middleware"
	"github.com/roadrats/wmsops/services/orders"
	"github.com/roadrats/wmsops/services/releases"
	"github.com/roadrats/wmsops/services/srm"
	"github.com/roadrats/wmsops/services/testtools"
)

// Deps bundles everything the handlers need. The caller owns the
// lifecycles; routes only wires them in.
type Deps struct {
	DBConfig dbconn.Config
	Factory  *dbconn.Factory

	Orders   *orders.Repository
	Saturday *orders.SaturdayService
	DBErrors *dberrors.Service

	Jira        *jira.Client
	JiraConfig  jira.Config
	Planner     *releases.Planner
	Releases    releases.Config
	Folders     *releases.FolderService
	Actions     *releases.ActionsService
	Assistant   *llm.Assistant
	Lookup      *testtools.LookupService
	Ship        *testtools.ShipService
	TestActions *testtools.ActionService
	Items       *testtools.ItemService
	SrmAPI      *srm.APIClient
	SrmFiles    *srm.FileService
	SrmValidate *srm.ValidationService
}

func SetupRoutes(router *gin.Engine, deps Deps) {
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/config", handlers.ConfigInfo(deps.DBConfig))

		database := api.Group("/database")
		{
			database.GET("/test/cls", handlers.TestPool(deps.Factory, dbconn.PoolCLS))
			database.GET("/test/io", handlers.TestPool(deps.Factory, dbconn.PoolIO))
		}

		io := api.Group("/io")
		{
			io.GET("/xml-logs", handlers.XMLLogs(deps.Orders))
			io.GET("/rate-query", handlers.RateQuery(deps.Orders, false))
			io.GET("/rate-hold-query", handlers.RateQuery(deps.Orders, true))
			io.GET("/rate-query/raw", handlers.RawRateQuery(deps.Orders))
			io.GET("/rate-query/summary", handlers.RateQuerySummary(deps.Orders, false))
			io.GET("/rate-hold-query/summary", handlers.RateQuerySummary(deps.Orders, true))
			io.GET("/rate-query/export", handlers.ExportRateQuery(deps.Orders, false))
			io.GET("/rate-hold-query/export", handlers.ExportRateQuery(deps.Orders, true))
			io.GET("/queue-status", handlers.QueueStatus(deps.Orders))
			io.GET("/database/test", handlers.IODatabaseTest(deps.Orders))
		}

		cls := api.Group("/cls")
		{
			cls.GET("/saturday-delivery", handlers.SaturdayDelivery(deps.Saturday))
		}

		dbErrors := api.Group("/database-errors")
		{
			dbErrors.GET("", handlers.DatabaseErrors(deps.DBErrors))
			dbErrors.GET("/server/:server", handlers.DatabaseErrorsByServer(deps.DBErrors))
			dbErrors.GET("/export", handlers.ExportDatabaseErrors(deps.DBErrors))
			dbErrors.GET("/servers", handlers.DatabaseErrorServers(deps.DBErrors))
		}

		release := api.Group("/release-manager")
		{
			release.GET("/config-status", handlers.ConfigStatus(deps.Jira, deps.JiraConfig))
			release.GET("/deployment-plan", handlers.DeploymentPlan(deps.Jira, deps.Planner))
			release.GET("/tickets", handlers.Tickets(deps.Jira))
			release.GET("/release-plan", handlers.ReleasePlan(deps.Jira, deps.Planner, deps.Releases))
			release.GET("/presets", handlers.Presets)
			release.GET("/preset-plan", handlers.PresetPlan(deps.Jira, deps.Planner))
			release.POST("/custom-plan", handlers.CustomPlan(deps.Jira, deps.Planner))
			release.GET("/deployment-dates", handlers.DeploymentDates(deps.Releases))

			deployments := release.Group("/deployments")
			{
				deployments.GET("/years", handlers.DeploymentYears(deps.Folders))
				deployments.GET("/months", handlers.DeploymentMonths(deps.Folders))
				deployments.GET("/releases", handlers.DeploymentReleases(deps.Folders))
				deployments.GET("/contents", handlers.DeploymentContents(deps.Folders))
				deployments.GET("/file", handlers.DeploymentFile(deps.Folders))
			}

			actions := release.Group("/actions")
			{
				actions.GET("/runs", handlers.ActionRuns(deps.Actions, deps.Releases))
				actions.GET("/run/:runId", handlers.ActionRunDetails(deps.Actions))
				actions.GET("/run/:runId/jobs", handlers.ActionRunJobs(deps.Actions))
				actions.GET("/workflows", handlers.ActionWorkflows(deps.Actions))
				actions.POST("/trigger", handlers.TriggerWorkflow(deps.Actions, deps.Releases))
			}
		}

		chatbot := api.Group("/chatbot")
		{
			chatbot.POST("/analyze", handlers.Analyze(deps.Assistant))
			chatbot.POST("/summarize", handlers.Summarize(deps.Assistant))
			chatbot.POST("/chat", handlers.Chat(deps.Assistant))
		}

		testTools := api.Group("/test-tools")
		{
			testTools.GET("/lookup", handlers.TestToolsLookup(deps.Lookup))
			testTools.GET("/connection-test", handlers.TestToolsConnectionTest(deps.Lookup))
			testTools.POST("/ship-order", handlers.ShipOrder(deps.Ship))
			testTools.POST("/ship-container", handlers.ShipContainer(deps.Ship))
			testTools.GET("/resolve-order", handlers.ResolveOrder(deps.TestActions))
			testTools.POST("/setup-order", handlers.SetupOrder(deps.TestActions))
			testTools.POST("/fulfillment-event", handlers.FulfillmentEvent(deps.TestActions))
			testTools.GET("/item-lookup", handlers.ItemLookup(deps.Items))
			testTools.POST("/item-import", handlers.ItemImport(deps.Items))
		}

		srmGroup := api.Group("/srm")
		{
			srmGroup.GET("/scheduled-version", handlers.SrmScheduledVersion(deps.SrmAPI))
			srmGroup.GET("/version", handlers.SrmScheduledVersion(deps.SrmAPI))
			srmGroup.GET("/delta-summary", handlers.SrmDeltaSummary(deps.SrmAPI))
			srmGroup.POST("/download", handlers.SrmDownload(deps.SrmFiles))
			srmGroup.POST("/copy-to-local", handlers.SrmCopyToLocal(deps.SrmFiles))
			srmGroup.GET("/check-existing", handlers.SrmCheckExisting(deps.SrmFiles))
			srmGroup.POST("/load-existing", handlers.SrmLoadExisting(deps.SrmFiles))
			srmGroup.POST("/execute-full-process", handlers.SrmExecuteFullProcess(deps.SrmFiles, deps.SrmValidate))
			srmGroup.GET("/routes", handlers.SrmRoutes(deps.SrmFiles))
			srmGroup.GET("/routes/:routeName/contents", handlers.SrmRouteContents(deps.SrmFiles))
			srmGroup.POST("/validate", handlers.SrmValidate(deps.SrmValidate))
		}
	}
}
