// Package legacy converts annotation payloads of unknown vintage into the
// canonical shape model.
//
// Three historical payload shapes are recognized, alone or mixed:
//
//  1. Typed list: entries carry a "type" tag (bbox, polygon, polyline,
//     point, mask). Required fields are checked per type and "confidence"
//     defaults to 0.5.
//  2. Untyped bounding-box list: {x, y, width, height, label, confidence}
//     entries with no tag. Each becomes a bounding box.
//  3. Legacy object list: {class, bbox: [x, y, w, h], confidence?} entries
//     in absolute pixels. They are divided by the image's natural size and
//     receive synthetic ids of the form bbox_<index>.
//
// A payload may be a bare array or an object wrapping the list under
// "annotations", "bounding_boxes" or "objects"; the first non-empty list
// in that order is used.
//
// Normalization never fails as a whole: absent or unparseable payloads yield
// an empty list and malformed entries are skipped. NormalizeReport also
// returns why each skipped entry was dropped.
package legacy
