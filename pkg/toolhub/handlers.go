package toolhub

import (
	"fmt"
	"math"

	"github.com/robotvision/armctl/internal/corectx"
	"github.com/robotvision/armctl/pkg/trajectory"
	"github.com/robotvision/armctl/pkg/vision"
	"gocv.io/x/gocv"
)

// defaultDescriptors builds the full tool surface, bound to r's
// context and audit log.
func (r *Registry) defaultDescriptors() []ToolDescriptor {
	return []ToolDescriptor{
		{
			Name:        "get_workpiece_catalog",
			Description: "List known workpiece classes with gripping height and description.",
			Handler:     handleGetWorkpieceCatalog,
		},
		{
			Name:        "execute_sequence",
			Description: "Run a semicolon-separated move/grip/delay program on the robot arm.",
			Handler:     handleExecuteSequence,
		},
		{
			Name:        "get_robot_status",
			Description: "Fetch the microcontroller's current TCP and joint angles.",
			Handler:     handleGetRobotStatus,
		},
		{
			Name:        "get_joypad_status",
			Description: "Read the last decoded teleoperation joypad axes.",
			Handler:     handleGetJoypadStatus,
		},
		{
			Name:        "get_live_image",
			Description: "Capture the latest camera frame, optionally running detection and returning a JPEG.",
			Handler:     handleGetLiveImage,
		},
		{
			Name:        "convert_coordinates",
			Description: "Convert a point between pixel, marker, and world frames.",
			Handler:     handleConvertCoordinates,
		},
		{
			Name:        "get_tool_logs",
			Description: "Return the recent tool-call audit log.",
			Handler: func(cc *corectx.Context, args map[string]any) (any, error) {
				return handleGetToolLogs(r, args)
			},
		},
	}
}

func handleGetWorkpieceCatalog(cc *corectx.Context, args map[string]any) (any, error) {
	out := make(map[string]any)
	for label, w := range cc.Catalog.All() {
		out[label] = map[string]any{
			"name":              w.NameEN,
			"gripping_height":   w.GrippingHeight,
			"approach_z_offset": w.ApproachZOffset,
			"description":       w.DescriptionEN,
		}
	}
	return out, nil
}

func handleExecuteSequence(cc *corectx.Context, args map[string]any) (any, error) {
	commands, _ := args["commands"].(string)

	prog, err := trajectory.Parse(commands)
	if err != nil {
		return nil, err
	}

	reply, err := cc.Serial.SendCommand(commands)
	if err != nil {
		return nil, err
	}

	if pp, ok := prog.ExtractPickPlace(); ok {
		pickM := cc.Projector.WorldToMarker(vision.Point3{X: pp.Pick.X, Y: pp.Pick.Y})
		placeM := cc.Projector.WorldToMarker(vision.Point3{X: pp.Place.X, Y: pp.Place.Y})

		zSafe := pp.ZPick
		if pp.ZPlace > zSafe {
			zSafe = pp.ZPlace
		}

		cc.Publisher.SetTrajectory(&vision.PickPlaceTrajectory{
			PickXY:  vision.Point2{X: pickM.X, Y: pickM.Y},
			PlaceXY: vision.Point2{X: placeM.X, Y: placeM.Y},
			ZPick:   pp.ZPick,
			ZPlace:  pp.ZPlace,
			ZSafe:   zSafe,
		})
	}

	return reply, nil
}

func handleGetRobotStatus(cc *corectx.Context, args map[string]any) (any, error) {
	return cc.Serial.SendCommand("dump")
}

func handleGetJoypadStatus(cc *corectx.Context, args map[string]any) (any, error) {
	r := cc.Joypad.Get()
	return map[string]any{
		"X":  int(r.X),
		"Y":  int(r.Y),
		"RX": int(r.RX),
		"RY": int(r.RY),
	}, nil
}

func handleGetLiveImage(cc *corectx.Context, args map[string]any) (any, error) {
	visualizeAxes, _ := args["visualize_axes"].(bool)
	detectObjects, _ := args["detect_objects"].(bool)
	confidence := 0.7
	if c, ok := args["confidence"].(float64); ok {
		confidence = c
	}
	returnImage, _ := args["return_image"].(bool)

	out := map[string]any{}

	if detectObjects {
		dets, err := detectOnCurrentFrame(cc, confidence)
		if err != nil {
			return nil, err
		}
		out["detections"] = dets
	}

	if returnImage {
		opts := vision.OverlayOptions{DrawAxes: visualizeAxes, DrawTrajectory: true}
		if b64, ok := cc.Publisher.SnapshotBase64(opts); ok {
			out["image_jpeg_base64"] = b64
		}
	}

	return out, nil
}

// detectOnCurrentFrame runs the detector on the latest published
// frame and enriches each detection with ground-center geometry and a
// sampled color name when a pose is available.
func detectOnCurrentFrame(cc *corectx.Context, confidence float64) ([]map[string]any, error) {
	frame, pose, havePose, ok := cc.Publisher.CurrentFrame()
	if !ok {
		return nil, fmt.Errorf("%w: no frame captured yet", vision.ErrCaptureFailed)
	}
	defer frame.Close()

	w, h := frame.Cols(), frame.Rows()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, fmt.Errorf("encoding frame for detection: %w", err)
	}
	defer buf.Close()

	dets, err := cc.Detector.Predict(buf.GetBytes(), w, h, confidence)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(dets))
	for _, d := range dets {
		entry := map[string]any{
			"label":      d.Label,
			"confidence": d.Confidence,
			"box":        []float64{d.Box.YMin, d.Box.XMin, d.Box.YMax, d.Box.XMax},
		}

		if havePose {
			if gc, err := cc.Cylinder.Estimate(d.Box, w, h, pose); err == nil {
				name, _ := vision.SampleColor(frame, d.Box, &gc, w, h)
				entry["ground_center"] = map[string]any{
					"world":             []float64{gc.World.X, gc.World.Y, gc.World.Z},
					"marker":            []float64{gc.Marker.X, gc.Marker.Y, gc.Marker.Z},
					"radius_mm":         gc.Radius,
					"height_mm":         gc.Height,
					"pixel_center_norm": []float64{gc.PixelCenterNorm.X, gc.PixelCenterNorm.Y},
					"pixel_top_norm":    []float64{gc.PixelTopNorm.X, gc.PixelTopNorm.Y},
				}
				if name != "" {
					entry["color"] = name
				}
			}
		}

		out = append(out, entry)
	}
	return out, nil
}

func handleConvertCoordinates(cc *corectx.Context, args map[string]any) (any, error) {
	x, _ := args["x"].(float64)
	y, _ := args["y"].(float64)
	z, _ := args["z"].(float64)
	source, _ := args["source"].(string)
	target, _ := args["target"].(string)

	cc.Tracker.UpdatePose(false)
	pose, havePose := cc.Tracker.Snapshot()

	var marker vision.Point3
	switch source {
	case "world":
		marker = cc.Projector.WorldToMarker(vision.Point3{X: x, Y: y, Z: z})
	case "marker":
		marker = vision.Point3{X: x, Y: y, Z: z}
	case "pixel":
		if !havePose {
			return nil, vision.ErrPoseUnavailable
		}
		p, err := cc.Projector.PixelToPlane(x, y, 0, pose)
		if err != nil {
			return nil, err
		}
		marker = p
	default:
		return nil, fmt.Errorf("convert_coordinates: unknown source %q", source)
	}

	out := map[string]any{}
	switch target {
	case "world":
		w := cc.Projector.MarkerToWorld(marker)
		out["x"], out["y"], out["z"] = round1(w.X), round1(w.Y), round1(w.Z)
	case "marker":
		out["x"], out["y"], out["z"] = round1(marker.X), round1(marker.Y), round1(marker.Z)
	case "pixel":
		if !havePose {
			return nil, vision.ErrPoseUnavailable
		}
		px, err := cc.Projector.MarkerToPixel(marker, pose)
		if err != nil {
			return nil, err
		}
		out["x"], out["y"] = round1(px.X), round1(px.Y)
	default:
		return nil, fmt.Errorf("convert_coordinates: unknown target %q", target)
	}

	return out, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func handleGetToolLogs(r *Registry, args map[string]any) (any, error) {
	entries := r.AuditLog().Entries()
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"time":   e.Time,
			"tool":   e.Tool,
			"args":   e.Args,
			"result": e.Result,
		})
	}
	return out, nil
}
