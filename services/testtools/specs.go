// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package testtools

// aadSpecs plans the AAD-stack grids for a resolved order. Empty
// identifiers drop the grids that need them.
func aadSpecs(orderNumber, containerID, whID string) []tableSpec {
	var specs []tableSpec

	if orderNumber != "" && whID != "" {
		specs = append(specs,
			tableSpec{"aad_pick_container", "Pick Container", "AAD", "Pick & Container",
				"SELECT TOP 100 * FROM t_pick_container WHERE wh_id = @p1 AND order_number = @p2",
				[]any{whID, orderNumber}},
			tableSpec{"aad_pick_detail", "Pick Detail", "AAD", "Pick & Container",
				"SELECT TOP 100 * FROM t_pick_detail WHERE wh_id = @p1 AND order_number = @p2",
				[]any{whID, orderNumber}},
			tableSpec{"aad_al_host_order_master", "Import Order Master", "AAD", "Import",
				"SELECT TOP 100 * FROM t_al_host_order_master WHERE wh_id = @p1 AND order_number = @p2",
				[]any{whID, orderNumber}},
			tableSpec{"aad_al_host_order_detail", "Import Order Detail", "AAD", "Import",
				"SELECT TOP 100 import_notes, * FROM t_al_host_order_detail WHERE wh_id = @p1 AND order_number = @p2",
				[]any{whID, orderNumber}},
			tableSpec{"aad_order", "Order", "AAD", "Order",
				"SELECT TOP 100 * FROM t_order WHERE wh_id = @p1 AND order_number = @p2",
				[]any{whID, orderNumber}},
			tableSpec{"aad_order_detail", "Order Detail", "AAD", "Order",
				"SELECT TOP 100 oms_order_number, * FROM t_order_detail WHERE wh_id = @p1 AND order_number = @p2",
				[]any{whID, orderNumber}},
			tableSpec{"aad_order_cancel", "Order Cancel", "AAD", "Order",
				"SELECT TOP 100 * FROM t_order_cancel WHERE wh_id = @p1 AND order_number = @p2",
				[]any{whID, orderNumber}},
			tableSpec{"aad_order_late_cancel", "Order Late Cancel", "AAD", "Order",
				"SELECT TOP 100 * FROM t_order_late_cancel WHERE wh_id = @p1 AND order_number = @p2",
				[]any{whID, orderNumber}},
			tableSpec{"aad_tran_log", "Transaction Log", "AAD", "Logs",
				"SELECT TOP 100 * FROM t_tran_log WHERE wh_id = @p1 AND control_number = @p2 ORDER BY tran_log_id DESC",
				[]any{whID, orderNumber}},
		)
	}

	if containerID != "" && whID != "" {
		specs = append(specs,
			tableSpec{"aad_pick_container_status_log", "Container Status Log", "AAD", "Pick & Container",
				"SELECT TOP 100 * FROM t_pick_container_status_log WHERE wh_id = @p1 AND container_id = @p2 ORDER BY unique_id DESC",
				[]any{whID, containerID}},
			tableSpec{"aad_hu_master", "HU Master", "AAD", "Shipping",
				"SELECT TOP 100 * FROM t_hu_master WHERE wh_id = @p1 AND hu_id = @p2",
				[]any{whID, containerID}},
			tableSpec{"aad_stored_item", "Stored Item", "AAD", "Shipping",
				"SELECT TOP 100 * FROM t_stored_item WHERE wh_id = @p1 AND hu_id = @p2",
				[]any{whID, containerID}},
			tableSpec{"aad_ship_confirm_queue", "Ship Confirm Queue", "AAD", "Shipping",
				"SELECT TOP 100 * FROM t_pick_container_ship_confirm_queue WHERE wh_id = @p1 AND container_id = @p2",
				[]any{whID, containerID}},
			tableSpec{"aad_ship_confirm_queue_log", "Ship Confirm Queue Log", "AAD", "Shipping",
				"SELECT TOP 100 * FROM t_pick_container_ship_confirm_queue_log WHERE wh_id = @p1 AND container_id = @p2",
				[]any{whID, containerID}},
			tableSpec{"aad_ship_confirm_log", "Ship Confirm Log", "AAD", "Shipping",
				"SELECT TOP 100 * FROM t_pick_container_ship_confirm_log WHERE wh_id = @p1 AND container_id = @p2",
				[]any{whID, containerID}},
			tableSpec{"aad_divert_reason", "Divert Reason", "AAD", "Shipping",
				"SELECT TOP 100 * FROM t_pick_container_divert_reason WHERE wh_id = @p1 AND container_id = @p2",
				[]any{whID, containerID}},
		)
	}

	// The exception log matches on whichever identifiers exist.
	if whID != "" {
		switch {
		case orderNumber != "" && containerID != "":
			specs = append(specs, tableSpec{"aad_exception_log", "Exception Log", "AAD", "Logs",
				"SELECT TOP 100 * FROM t_exception_log WHERE wh_id = @p1 AND (control_number = @p2 OR hu_id = @p3) ORDER BY exception_id DESC",
				[]any{whID, orderNumber, containerID}})
		case orderNumber != "":
			specs = append(specs, tableSpec{"aad_exception_log", "Exception Log", "AAD", "Logs",
				"SELECT TOP 100 * FROM t_exception_log WHERE wh_id = @p1 AND control_number = @p2 ORDER BY exception_id DESC",
				[]any{whID, orderNumber}})
		default:
			specs = append(specs, tableSpec{"aad_exception_log", "Exception Log", "AAD", "Logs",
				"SELECT TOP 100 * FROM t_exception_log WHERE wh_id = @p1 AND hu_id = @p2 ORDER BY exception_id DESC",
				[]any{whID, containerID}})
		}
	}

	return specs
}

// ioSpecs plans the IO-stack grids: the import pre-processing chain,
// the CLS queues, and the IO copies of the order tables.
func ioSpecs(orderNumber, containerID, whID string) []tableSpec {
	if orderNumber == "" || whID == "" {
		return nil
	}

	specs := []tableSpec{
		{"io_event_queue", "Event Queue (Pre-Processing)", "IO", "Pre-Processing",
			"SELECT TOP 50 * FROM ADV..t_event_queue WHERE event_data LIKE '%' + @p1 + '%'",
			[]any{orderNumber}},
		{"io_xml_imp_oo_master", "XML Import OO Master", "IO", "Pre-Processing",
			"SELECT TOP 50 * FROM t_xml_imp_oo_master WHERE OrderNumber = @p1",
			[]any{orderNumber}},
		{"io_xml_imp_oo_info", "XML Import OO Info", "IO", "Pre-Processing",
			"SELECT TOP 50 * FROM t_xml_imp_oo_info WHERE hjs_parent_id = (SELECT TOP 1 hjs_node_id FROM t_xml_imp_oo_master WHERE OrderNumber = @p1)",
			[]any{orderNumber}},
		{"io_xml_imp_oo_details", "XML Import OO Details", "IO", "Pre-Processing",
			"SELECT TOP 50 * FROM t_xml_imp_oo_details WHERE hjs_parent_id = (SELECT TOP 1 hjs_node_id FROM t_xml_imp_oo_master WHERE OrderNumber = @p1)",
			[]any{orderNumber}},
		{"io_link_work_queue", "Link Work Queue", "IO", "Pre-Processing",
			"SELECT TOP 50 * FROM t_link_work_queue WHERE event_type = 1 AND event_data = (SELECT TOP 1 hjs_parent_id FROM t_xml_imp_oo_master WHERE OrderNumber = @p1) AND date_added > GETDATE() - 7",
			[]any{orderNumber}},
		{"io_event_queue_cls", "Event Queue (Class 6)", "IO", "Pre-Processing",
			"SELECT TOP 50 * FROM ADV..t_event_queue WHERE event_class = 6 AND event_data = " +
				"(SELECT CONCAT(N'SYS_EVENT_ID|', CONVERT(NVARCHAR(50), l.event_id)) " +
				"FROM t_link_work_queue l WHERE event_type = 1 " +
				"AND event_data = (SELECT TOP 1 hjs_parent_id FROM t_xml_imp_oo_master WHERE OrderNumber = @p1) " +
				"AND date_added > GETDATE() - 7)",
			[]any{orderNumber}},

		{"io_cls_xml_log", "CLS XML Log", "IO", "Queues",
			"SELECT TOP 50 * FROM WMS_LOG..t_cls_xml_log WHERE order_number = @p1 AND wh_id = @p2 ORDER BY 2",
			[]any{orderNumber, whID}},
		{"io_cls_rate_queue", "CLS Rate Queue", "IO", "Queues",
			"SELECT TOP 50 * FROM t_cls_rate_queue WHERE order_number = @p1 AND wh_id = @p2 ORDER BY 2",
			[]any{orderNumber, whID}},
		{"io_al_order_import_queue", "Order Import Queue", "IO", "Queues",
			"SELECT TOP 50 * FROM t_al_order_import_queue WHERE order_number = @p1 AND wh_id = @p2",
			[]any{orderNumber, whID}},
		{"io_container_optimize_queue", "Container Optimize Queue", "IO", "Queues",
			"SELECT TOP 50 * FROM t_container_optimize_queue WHERE order_number = @p1 AND wh_id = @p2",
			[]any{orderNumber, whID}},
		{"io_cls_rate_order_queue", "CLS Rate Order Queue", "IO", "Queues",
			"SELECT TOP 50 * FROM t_cls_rate_order_queue WHERE order_number = @p1 AND wh_id = @p2",
			[]any{orderNumber, whID}},
		{"io_cls_manifest_queue", "CLS Manifest Queue", "IO", "Queues",
			"SELECT TOP 50 * FROM t_cls_manifest_queue WHERE order_number = @p1 AND wh_id = @p2",
			[]any{orderNumber, whID}},
		{"io_cls_rate_hold_queue", "CLS Rate Hold Queue", "IO", "Queues",
			"SELECT TOP 50 * FROM t_cls_rate_hold_queue WHERE order_number = @p1 AND wh_id = @p2",
			[]any{orderNumber, whID}},
		{"io_export_order_queue", "Export Order Queue", "IO", "Queues",
			"SELECT TOP 50 * FROM t_export_order_queue WHERE order_number = @p1 AND wh_id = @p2",
			[]any{orderNumber, whID}},

		{"io_al_host_order_master", "Import Order Master", "IO", "Order (IO)",
			"SELECT TOP 100 import_notes, * FROM t_al_host_order_master WHERE order_number = @p1 AND wh_id = @p2",
			[]any{orderNumber, whID}},
		{"io_al_host_order_detail", "Import Order Detail", "IO", "Order (IO)",
			"SELECT TOP 100 import_notes, * FROM t_al_host_order_detail WHERE order_number = @p1 AND wh_id = @p2",
			[]any{orderNumber, whID}},
		{"io_order", "Order", "IO", "Order (IO)",
			"SELECT TOP 100 cold_profile, express_eligible, * FROM t_order WHERE order_number = @p1 AND wh_id = @p2",
			[]any{orderNumber, whID}},
		{"io_order_detail", "Order Detail", "IO", "Order (IO)",
			"SELECT TOP 100 * FROM t_order_detail WHERE order_number = @p1 AND wh_id = @p2",
			[]any{orderNumber, whID}},
		{"io_pick_detail", "Pick Detail (with UOM)", "IO", "Pick & Container (IO)",
			"SELECT TOP 100 * FROM t_pick_detail pkd INNER JOIN t_item_uom uom ON uom.wh_id = pkd.wh_id AND uom.item_number = pkd.item_number " +
				"WHERE pkd.order_number = @p1 AND pkd.wh_id = @p2",
			[]any{orderNumber, whID}},
		{"io_pick_container", "Pick Container", "IO", "Pick & Container (IO)",
			"SELECT TOP 100 service_level, transit_days, sat_delivery_flag, * FROM t_pick_container WHERE order_number = @p1 AND wh_id = @p2",
			[]any{orderNumber, whID}},
	}

	if containerID != "" {
		specs = append(specs, tableSpec{"io_pick_container_label", "Pick Container Label", "IO", "Pick & Container (IO)",
			"SELECT TOP 100 * FROM t_pick_container_label WHERE container_id = @p1 AND wh_id = @p2",
			[]any{containerID, whID}})
	}

	specs = append(specs, tableSpec{"io_work_queue", "Work Queue", "IO", "Pick & Container (IO)",
		"SELECT TOP 100 wkq.* FROM t_work_q wkq INNER JOIN t_pick_detail pkd ON pkd.work_q_id = wkq.work_q_id AND pkd.wh_id = wkq.wh_id " +
			"WHERE pkd.order_number = @p1 AND pkd.wh_id = @p2",
		[]any{orderNumber, whID}})

	return specs
}
